package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes human-readable log lines to w; stdout is left to CSV output.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
