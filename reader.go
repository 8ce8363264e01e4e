package linecsv

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/rs/zerolog"
)

// MaxLineSize bounds a single physical line read by ScanLines.
const MaxLineSize = 1 << 20

const defaultBufferSize = 1 << 10 // 1024 bytes

var (
	// ErrBareQuote is returned in strict mode when a quote appears inside an unquoted field.
	ErrBareQuote = errors.New("linecsv: bare quote in non-quoted field")
	// ErrTrailingQuote is returned in strict mode when content follows a closing quote.
	ErrTrailingQuote = errors.New("linecsv: extraneous content after closing quote")
	// ErrUnterminatedQuote is returned when the input ends inside a quoted field.
	ErrUnterminatedQuote = errors.New("linecsv: unterminated quoted field")
	// ErrFieldCount is returned when a record contains an unexpected number of fields.
	ErrFieldCount = errors.New("linecsv: wrong number of fields")
)

// ParseError contains location information for CSV parsing errors.
type ParseError struct {
	StartLine int // line where the record starts
	Line      int // line where the error occurred
	Column    int // 1-based rune column where the error occurred
	Err       error
}

// Error formats the parse error message with the stored line, column, and Err values.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.StartLine != 0 && e.StartLine != e.Line {
		return fmt.Sprintf("linecsv: record on line %d: parse error on line %d, column %d: %v", e.StartLine, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("linecsv: parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
}

// Unwrap returns the underlying Err so ParseError participates in errors.Unwrap.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LineSource supplies physical lines with their terminators already removed.
// NextLine returns io.EOF once no lines remain.
type LineSource interface {
	NextLine() (string, error)
}

// LineFunc adapts an ordinary function to LineSource.
type LineFunc func() (string, error)

// NextLine calls f.
func (f LineFunc) NextLine() (string, error) {
	return f()
}

// SliceLines serves lines in order and then io.EOF.
func SliceLines(lines []string) LineSource {
	i := 0
	return LineFunc(func() (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		i++
		return lines[i-1], nil
	})
}

// TerminatorSource is a LineSource that knows which terminator it stripped from the
// line most recently returned. The Reader keeps that terminator inside quoted fields
// spanning lines; for other sources "\n" is kept.
type TerminatorSource interface {
	LineSource
	Terminator() string
}

// LineScanner splits an io.Reader into physical lines ended by "\n", "\r\n" or a lone "\r".
type LineScanner struct {
	sc   *bufio.Scanner
	term string
}

// ScanLines returns a LineScanner reading r.
func ScanLines(r io.Reader) *LineScanner {
	if r == nil {
		panic("linecsv: line source cannot be nil")
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, defaultBufferSize), MaxLineSize)
	sc.Split(splitLines)
	return &LineScanner{sc: sc}
}

// NextLine returns the next line without its terminator.
func (s *LineScanner) NextLine() (string, error) {
	if !s.sc.Scan() {
		s.term = ""
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := s.sc.Text()
	switch {
	case strings.HasSuffix(line, "\r\n"):
		s.term = "\r\n"
	case strings.HasSuffix(line, "\n"):
		s.term = "\n"
	case strings.HasSuffix(line, "\r"):
		s.term = "\r"
	default:
		s.term = ""
	}
	return line[:len(line)-len(s.term)], nil
}

// Terminator returns the terminator stripped from the last line, or "" when the
// input ended without one.
func (s *LineScanner) Terminator() string {
	return s.term
}

// splitLines is a bufio.SplitFunc returning lines with their terminator attached.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i+1], nil
		}
		// A '\r' at the end of the buffer may still be followed by '\n'.
		if i+1 == len(data) && !atEOF {
			return 0, nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i+2], nil
		}
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Reader produces logical rows from a LineSource.
//
// The row sequence is forward-only; to read again, create a new Reader over a new source.
type Reader struct {
	src  LineSource
	term TerminatorSource
	p    *Parser

	// ReuseRecord indicates whether Read should reuse the backing array of the returned slice.
	ReuseRecord bool
	// FieldsPerRecord expects each record to contain this many fields. Zero captures the
	// width of the first record; a negative value disables the check.
	FieldsPerRecord int
	// Logger receives recovery and end-of-input events.
	Logger zerolog.Logger

	skipEmpty bool
	finished  bool
}

// NewReader creates a Reader that pulls physical lines from src and parses them with d,
// panicking if src is nil.
func NewReader(src LineSource, d Dialect) *Reader {
	if src == nil {
		panic("linecsv: reader source cannot be nil")
	}
	term, _ := src.(TerminatorSource)
	return &Reader{
		src:       src,
		term:      term,
		p:         NewParser(d),
		Logger:    zerolog.Nop(),
		skipEmpty: d.SkipEmptyLines,
	}
}

// Read returns the next logical row. io.EOF signals that no more rows remain; a
// *ParseError wrapping ErrUnterminatedQuote signals that the input ended inside a
// quoted field, after which the Reader is finished.
func (r *Reader) Read() (record []string, err error) {
	if r == nil || r.src == nil || r.finished {
		return nil, io.EOF
	}
	r.p.ReuseRecord = r.ReuseRecord
	r.p.Logger = r.Logger

	for {
		line, err := r.src.NextLine()
		if err == io.EOF {
			return r.finish()
		}
		if err != nil {
			return nil, err
		}

		if r.skipEmpty && line == "" && !r.p.Pending() {
			continue
		}

		var record []string
		if r.term != nil {
			record, err = r.p.ParseTerminatedLine(line, r.term.Terminator())
		} else {
			record, err = r.p.ParseLine(line)
		}
		if err != nil {
			return nil, err
		}
		if record != nil {
			return r.checkWidth(record)
		}
	}
}

func (r *Reader) finish() ([]string, error) {
	r.finished = true
	if err := r.p.Finish(); err != nil {
		r.Logger.Warn().Err(err).Msg("linecsv: input ended inside a quoted field")
		return nil, err
	}
	return nil, io.EOF
}

func (r *Reader) checkWidth(record []string) ([]string, error) {
	switch {
	case r.FieldsPerRecord < 0:
		return record, nil
	case r.FieldsPerRecord == 0:
		r.FieldsPerRecord = len(record)
		return record, nil
	case len(record) != r.FieldsPerRecord:
		return record, &ParseError{
			StartLine: r.p.m.startLine,
			Line:      r.p.Line(),
			Column:    1,
			Err:       ErrFieldCount,
		}
	}
	return record, nil
}

// ReadAll exhausts the reader, repeatedly calling Read to collect records until io.EOF
// and returning the accumulated records slice plus the first non-EOF error encountered.
func (r *Reader) ReadAll() (records [][]string, err error) {
	reuse := r.ReuseRecord
	r.ReuseRecord = false
	defer func() { r.ReuseRecord = reuse }()

	for {
		record, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// Rows returns the remaining rows as a lazy sequence. Nothing is read until the
// sequence is ranged over; iteration stops after the first error is yielded.
func (r *Reader) Rows() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

// ReadHeader reads the next row and returns a copy that stays valid across later
// reads, suitable as the header argument of ReadMap.
func (r *Reader) ReadHeader() ([]string, error) {
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make([]string, len(record))
	for i, f := range record {
		header[i] = strings.Clone(f)
	}
	return header, nil
}

// ReadMap reads the next row and keys its fields by header. Fields beyond the header
// are dropped and missing fields are absent from the map.
func (r *Reader) ReadMap(header []string) (map[string]string, error) {
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(header))
	for i, key := range header {
		if i < len(record) {
			out[key] = record[i]
		}
	}
	return out, nil
}

// Line returns the number of physical lines consumed so far.
func (r *Reader) Line() int {
	return r.p.Line()
}
