package linecsv

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidDialect is returned by Dialect.Validate for unusable configurations.
var ErrInvalidDialect = errors.New("linecsv: invalid dialect")

// QuotingPolicy decides which fields the Writer wraps in quote characters.
type QuotingPolicy int

const (
	// QuoteAsNeeded quotes fields containing the delimiter, quote, escape or a line terminator character.
	QuoteAsNeeded QuotingPolicy = iota
	// QuoteAlways quotes every non-null field.
	QuoteAlways
	// QuoteNonNumeric quotes every non-null field that is not a plain decimal numeral.
	QuoteNonNumeric
)

var quotingNames = map[QuotingPolicy]string{
	QuoteAsNeeded:   "as_needed",
	QuoteAlways:     "always",
	QuoteNonNumeric: "non_numeric",
}

func (p QuotingPolicy) String() string {
	if name, ok := quotingNames[p]; ok {
		return name
	}
	return fmt.Sprintf("QuotingPolicy(%d)", int(p))
}

// ParseQuotingPolicy maps a configuration name such as "always" onto a QuotingPolicy.
// Hyphens and case are ignored.
func ParseQuotingPolicy(s string) (QuotingPolicy, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for p, name := range quotingNames {
		if name == norm {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown quoting policy %q", ErrInvalidDialect, s)
}

// Dialect describes how CSV text is split into fields and how fields are written back.
// A Dialect is a plain value: once handed to a Parser, Reader or Writer it is copied
// and never modified, so one Dialect may back any number of them concurrently.
type Dialect struct {
	// Delimiter separates fields. Default is ','.
	Delimiter rune
	// Quote encloses fields. Default is '"'.
	Quote rune
	// Escape makes the following quote or escape character literal inside a field.
	// When equal to Quote, escaping is plain quote doubling. Default is '"'.
	Escape rune
	// Quoting selects the write-side quoting policy.
	Quoting QuotingPolicy
	// LineTerminator is written between rows. Default is "\r\n".
	LineTerminator string
	// NullValue is written in place of nil fields.
	NullValue string
	// TrailingTerminator writes LineTerminator after the last row as well.
	TrailingTerminator bool
	// Strict rejects content after a closing quote and quotes inside unquoted fields
	// instead of recovering from them.
	Strict bool
	// SkipEmptyLines makes the Reader ignore empty physical lines between rows.
	SkipEmptyLines bool
}

// DefaultDialect returns the RFC 4180 flavoured dialect used when nothing else is configured.
func DefaultDialect() Dialect {
	return Dialect{
		Delimiter:          ',',
		Quote:              '"',
		Escape:             '"',
		Quoting:            QuoteAsNeeded,
		LineTerminator:     "\r\n",
		TrailingTerminator: true,
	}
}

// Validate reports whether d can be used to both parse and write CSV unambiguously.
func (d Dialect) Validate() error {
	switch {
	case d.Delimiter == 0:
		return fmt.Errorf("%w: delimiter is not set", ErrInvalidDialect)
	case d.Quote == 0:
		return fmt.Errorf("%w: quote is not set", ErrInvalidDialect)
	case d.Escape == 0:
		return fmt.Errorf("%w: escape is not set", ErrInvalidDialect)
	case !utf8.ValidRune(d.Delimiter), !utf8.ValidRune(d.Quote), !utf8.ValidRune(d.Escape):
		return fmt.Errorf("%w: delimiter, quote and escape must be valid characters", ErrInvalidDialect)
	case d.Delimiter == d.Quote:
		return fmt.Errorf("%w: delimiter and quote are both %q", ErrInvalidDialect, d.Delimiter)
	case d.Delimiter == d.Escape:
		return fmt.Errorf("%w: delimiter and escape are both %q", ErrInvalidDialect, d.Delimiter)
	case isLineBreak(d.Delimiter), isLineBreak(d.Quote), isLineBreak(d.Escape):
		return fmt.Errorf("%w: line break characters cannot be delimiter, quote or escape", ErrInvalidDialect)
	case d.LineTerminator == "":
		return fmt.Errorf("%w: line terminator is empty", ErrInvalidDialect)
	}
	if _, ok := quotingNames[d.Quoting]; !ok {
		return fmt.Errorf("%w: unknown quoting policy %d", ErrInvalidDialect, int(d.Quoting))
	}
	return nil
}

// withDefaults fills unset characters so a zero Dialect still parses plain CSV.
func (d Dialect) withDefaults() Dialect {
	if d.Delimiter == 0 {
		d.Delimiter = ','
	}
	if d.Quote == 0 {
		d.Quote = '"'
	}
	if d.Escape == 0 {
		d.Escape = d.Quote
	}
	if d.LineTerminator == "" {
		d.LineTerminator = "\r\n"
	}
	return d
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
