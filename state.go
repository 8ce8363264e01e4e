package linecsv

import (
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ParseState tells where the parser is inside the current logical row.
type ParseState int

const (
	// StateFieldStart is the position right after a delimiter or at the start of a row.
	StateFieldStart ParseState = iota
	// StateUnquoted is inside a field that did not start with a quote.
	StateUnquoted
	// StateQuoted is inside a quoted field.
	StateQuoted
	// StateQuoteInQuoted follows a quote seen inside a quoted field; the field may be closing.
	StateQuoteInQuoted
	// StateQuotedEscape follows an escape that ended a physical line inside a quoted field.
	StateQuotedEscape
)

var stateNames = [...]string{
	StateFieldStart:    "field_start",
	StateUnquoted:      "unquoted",
	StateQuoted:        "quoted",
	StateQuoteInQuoted: "quote_in_quoted",
	StateQuotedEscape:  "quoted_escape",
}

func (s ParseState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ParseState(%d)", int(s))
}

// InQuotes reports whether the row cannot end in this state.
func (s ParseState) InQuotes() bool {
	return s == StateQuoted || s == StateQuoteInQuoted || s == StateQuotedEscape
}

// rawByteBase offsets bytes that are not valid UTF-8. They travel through the state
// machine as runes no dialect character can equal and are stored back as the original byte.
const rawByteBase = utf8.MaxRune + 1

// decodeChar decodes the first character of s, mapping an invalid byte to rawByteBase+b.
func decodeChar(s string) (rune, int) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size == 1 {
		return rawByteBase + rune(s[0]), 1
	}
	return r, size
}

// stateMachine classifies one character at a time (with one character of lookahead)
// and accumulates the fields of a single logical row.
type stateMachine struct {
	delim  rune
	quote  rune
	escape rune
	strict bool
	log    *zerolog.Logger

	state ParseState

	// Field data is accumulated into one buffer; fieldBounds holds start/end pairs.
	dataBuf     []byte
	fieldBounds []int
	fieldStart  int

	line      int
	column    int
	startLine int
	quoteLine int
	quoteCol  int
}

func newStateMachine(d Dialect, log *zerolog.Logger) stateMachine {
	return stateMachine{
		delim:       d.Delimiter,
		quote:       d.Quote,
		escape:      d.Escape,
		strict:      d.Strict,
		log:         log,
		dataBuf:     make([]byte, 0, 512),
		fieldBounds: make([]int, 0, 32),
	}
}

// beginRow clears all per-row data; nothing of the previous row survives.
func (m *stateMachine) beginRow() {
	m.state = StateFieldStart
	m.dataBuf = m.dataBuf[:0]
	m.fieldBounds = m.fieldBounds[:0]
	m.fieldStart = 0
	m.startLine = m.line + 1
}

// beginLine is called before the characters of each physical line are fed.
func (m *stateMachine) beginLine() {
	m.line++
	m.column = 0
}

func (m *stateMachine) appendRune(r rune) {
	if r >= rawByteBase {
		m.dataBuf = append(m.dataBuf, byte(r-rawByteBase))
		return
	}
	m.dataBuf = utf8.AppendRune(m.dataBuf, r)
}

func (m *stateMachine) closeField() {
	m.fieldBounds = append(m.fieldBounds, m.fieldStart, len(m.dataBuf))
	m.fieldStart = len(m.dataBuf)
	m.state = StateFieldStart
}

// escapes reports whether ch followed by next is a recognised escape sequence.
func (m *stateMachine) escapes(ch, next rune, hasNext bool) bool {
	return ch == m.escape && hasNext && (next == m.quote || next == m.escape)
}

// advance consumes ch, looking at next when hasNext is set, and returns how many
// characters (1 or 2) were accounted for.
func (m *stateMachine) advance(ch, next rune, hasNext bool) (int, error) {
	m.column++

	switch m.state {
	case StateFieldStart:
		switch ch {
		case m.quote:
			m.state = StateQuoted
			m.quoteLine, m.quoteCol = m.line, m.column
			return 1, nil
		case m.delim:
			m.closeField()
			return 1, nil
		}
		m.state = StateUnquoted
		return m.unquoted(ch, next, hasNext)

	case StateUnquoted:
		return m.unquoted(ch, next, hasNext)

	case StateQuoted:
		if m.escapes(ch, next, hasNext) {
			m.appendRune(next)
			m.column++
			return 2, nil
		}
		if ch == m.escape && !hasNext && m.escape != m.quote {
			m.state = StateQuotedEscape
			return 1, nil
		}
		if ch == m.quote {
			m.state = StateQuoteInQuoted
			return 1, nil
		}
		m.appendRune(ch)
		return 1, nil

	case StateQuoteInQuoted:
		switch ch {
		case m.quote:
			m.appendRune(ch)
			m.state = StateQuoted
			return 1, nil
		case m.delim:
			m.closeField()
			return 1, nil
		}
		if m.strict {
			return 1, ErrTrailingQuote
		}
		m.recovered("content after closing quote")
		m.state = StateUnquoted
		return m.unquoted(ch, next, hasNext)

	case StateQuotedEscape:
		// Only reachable if a caller feeds characters without ending the line first.
		m.appendRune(ch)
		m.state = StateQuoted
		return 1, nil
	}
	return 1, fmt.Errorf("linecsv: unknown parse state %d", int(m.state))
}

func (m *stateMachine) unquoted(ch, next rune, hasNext bool) (int, error) {
	switch {
	case ch == m.delim:
		m.closeField()
		return 1, nil
	case m.escapes(ch, next, hasNext):
		m.appendRune(next)
		m.column++
		return 2, nil
	case ch == m.quote:
		if m.strict {
			return 1, ErrBareQuote
		}
		m.recovered("bare quote in unquoted field")
	}
	m.appendRune(ch)
	return 1, nil
}

// endLine accounts for the end of a physical line whose stripped terminator was term.
// It reports whether the logical row is complete; inside a quoted field term is kept as
// field content and the next physical line continues the row.
func (m *stateMachine) endLine(term string) bool {
	switch m.state {
	case StateQuoted, StateQuotedEscape:
		m.dataBuf = append(m.dataBuf, term...)
		m.state = StateQuoted
		return false
	}
	m.closeField()
	return true
}

func (m *stateMachine) recovered(what string) {
	if m.log != nil {
		m.log.Debug().
			Int("line", m.line).
			Int("column", m.column).
			Str("state", m.state.String()).
			Msg("linecsv: recovered from " + what)
	}
}
