package linecsv

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roundTripRows = [][]string{
	{"plain", "", "with space"},
	{"a,b", `say "hi"`, "multi\nline"},
	{`"`, `""`, ","},
	{"", "", ""},
	{"1.5", "-2", "1.5.5"},
	{`back\slash`, `\"`, `end\`},
	{"\n", "trailing\n", "\nleading"},
	{"NULL", "null", "héllo wörld"},
	{"crlf\r\ninside", "lone\rcr", "caf\xe9"},
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	dialects := map[string]func() Dialect{
		"default": lfDialect,
		"crlf":    DefaultDialect,
		"backslash": func() Dialect {
			d := lfDialect()
			d.Escape = '\\'
			return d
		},
		"semicolonSingleQuote": func() Dialect {
			d := lfDialect()
			d.Delimiter = ';'
			d.Quote = '\''
			d.Escape = '\''
			return d
		},
	}
	policies := []QuotingPolicy{QuoteAsNeeded, QuoteAlways, QuoteNonNumeric}

	for name, mk := range dialects {
		for _, policy := range policies {
			t.Run(name+"/"+policy.String(), func(t *testing.T) {
				t.Parallel()

				d := mk()
				d.Quoting = policy
				d.NullValue = "NULL"

				var buf bytes.Buffer
				w := NewWriter(&buf, d)
				require.NoError(t, w.WriteAll(roundTripRows))
				require.NoError(t, w.Flush())

				r := NewReader(ScanLines(strings.NewReader(buf.String())), d)
				got, err := r.ReadAll()
				require.NoError(t, err)
				assert.Equal(t, roundTripRows, got, "output was:\n%s", buf.String())
			})
		}
	}
}

func TestRoundTripSingleLine(t *testing.T) {
	t.Parallel()

	d := lfDialect()
	d.TrailingTerminator = false

	for _, row := range roundTripRows {
		var buf bytes.Buffer
		w := NewWriter(&buf, d)
		require.NoError(t, w.Write(row))
		require.NoError(t, w.Flush())

		p := NewParser(d)
		src := ScanLines(strings.NewReader(buf.String()))
		var got []string
		for {
			line, err := src.NextLine()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			rec, err := p.ParseTerminatedLine(line, src.Terminator())
			require.NoError(t, err)
			if rec != nil {
				got = rec
			}
		}
		assert.False(t, p.Pending())
		assert.Equal(t, row, got)
	}
}
