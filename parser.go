package linecsv

import (
	"unsafe"

	"github.com/rs/zerolog"
)

// Parser turns physical lines into logical rows. A row whose quoted field spans
// several lines is assembled over several ParseLine calls on the same Parser.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	// ReuseRecord indicates whether ParseLine may reuse the backing array and string
	// storage of the previously returned row.
	ReuseRecord bool
	// Logger receives debug events when malformed quoting is recovered from.
	Logger zerolog.Logger

	m       stateMachine
	pending bool
	record  []string
}

// NewParser creates a Parser for d. Unset characters in d fall back to the defaults.
func NewParser(d Dialect) *Parser {
	p := &Parser{
		Logger: zerolog.Nop(),
		record: make([]string, 0, 16),
	}
	p.m = newStateMachine(d.withDefaults(), &p.Logger)
	return p
}

// defaultLineBreak is kept inside a quoted field that spans lines when the caller does
// not say which terminator the line had.
const defaultLineBreak = "\n"

// ParseLine feeds one physical line, without its terminator, to the parser. It returns
// the completed row, or nil and a nil error when the line ended inside a quoted field
// and the next physical line must be passed to continue the row. A line break inside
// a quoted field is kept as "\n"; use ParseTerminatedLine to keep the original one.
func (p *Parser) ParseLine(line string) ([]string, error) {
	return p.ParseTerminatedLine(line, defaultLineBreak)
}

// ParseTerminatedLine is ParseLine for a line whose stripped terminator term is known.
// term becomes field content when the line ends inside a quoted field. Bytes that are
// not valid UTF-8 are copied through unchanged.
func (p *Parser) ParseTerminatedLine(line, term string) ([]string, error) {
	if !p.pending {
		p.m.beginRow()
	}
	p.m.beginLine()

	for i := 0; i < len(line); {
		ch, size := decodeChar(line[i:])
		i += size

		var next rune
		nextSize := 0
		hasNext := i < len(line)
		if hasNext {
			next, nextSize = decodeChar(line[i:])
		}

		n, err := p.m.advance(ch, next, hasNext)
		if err != nil {
			p.pending = false
			return nil, p.m.wrapError(err)
		}
		if n == 2 {
			i += nextSize
		}
	}

	if !p.m.endLine(term) {
		p.pending = true
		return nil, nil
	}
	p.pending = false
	return p.buildRecord(), nil
}

// Finish is called once no more physical lines exist. It returns nil when no row is
// open, or a *ParseError wrapping ErrUnterminatedQuote positioned at the opening quote
// when the input ended inside a quoted field.
func (p *Parser) Finish() error {
	if !p.pending {
		return nil
	}
	p.pending = false
	return &ParseError{
		StartLine: p.m.startLine,
		Line:      p.m.quoteLine,
		Column:    p.m.quoteCol,
		Err:       ErrUnterminatedQuote,
	}
}

// Pending reports whether a row is open and waiting for more physical lines.
func (p *Parser) Pending() bool {
	return p.pending
}

// State returns the current parse state. It is StateFieldStart between rows.
func (p *Parser) State() ParseState {
	if !p.pending {
		return StateFieldStart
	}
	return p.m.state
}

// Line returns the number of physical lines fed so far.
func (p *Parser) Line() int {
	return p.m.line
}

// Reset drops any open row. Line counting continues.
func (p *Parser) Reset() {
	p.pending = false
	p.m.beginRow()
}

// buildRecord maps the accumulated fieldBounds onto the data buffer, respecting ReuseRecord.
func (p *Parser) buildRecord() []string {
	m := &p.m
	fieldCount := len(m.fieldBounds) / 2

	var recordStr string
	if p.ReuseRecord {
		if len(m.dataBuf) > 0 {
			// Zero-copy string construction so fields share the parser's buffer.
			recordStr = unsafe.String(unsafe.SliceData(m.dataBuf), len(m.dataBuf))
		}
		if cap(p.record) < fieldCount {
			p.record = make([]string, fieldCount)
		}
		p.record = p.record[:fieldCount]
	} else {
		recordStr = string(m.dataBuf)
		p.record = make([]string, fieldCount)
	}

	for i := 0; i < fieldCount; i++ {
		p.record[i] = recordStr[m.fieldBounds[2*i]:m.fieldBounds[2*i+1]]
	}
	return p.record
}

// wrapError attaches the current position to err, producing a *ParseError.
func (m *stateMachine) wrapError(err error) error {
	return &ParseError{StartLine: m.startLine, Line: m.line, Column: m.column, Err: err}
}
