package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// openInput opens path ("-" or "" for stdin) and decodes it to UTF-8. A byte order
// mark is always stripped; without one the named encoding is used.
func openInput(path, encodingName string, stdin io.Reader) (io.Reader, func() error, error) {
	dec, err := decoderFor(encodingName)
	if err != nil {
		return nil, nil, err
	}

	src := stdin
	closeFn := func() error { return nil }
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input: %w", err)
		}
		src = f
		closeFn = f.Close
	}
	return transform.NewReader(src, unicode.BOMOverride(dec)), closeFn, nil
}

func decoderFor(name string) (transform.Transformer, error) {
	if name == "" || name == "utf-8" || name == "utf8" {
		return encoding.Nop.NewDecoder(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown input encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported input encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// openOutput creates path, or returns stdout for "" and "-".
func openOutput(path string, stdout io.Writer) (io.Writer, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, nil
}

// nopCloser keeps Writer.Close from closing stdout.
type nopCloser struct {
	io.Writer
}
