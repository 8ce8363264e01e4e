package linecsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"
)

var (
	// ErrWrite wraps the sink error reported after a failed write operation.
	ErrWrite = errors.New("linecsv: failed to write")

	errNilWriter      = errors.New("linecsv: writer is nil")
	errWriterNoTarget = errors.New("linecsv: writer destination cannot be nil")
	errWriterClosed   = errors.New("linecsv: writer is closed")
)

// Writer emits rows under a Dialect. The terminator after a row is deferred until the
// next row arrives, so "last row" is decided lazily and batches written with several
// calls join without blank rows.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	dst    *bufio.Writer
	target io.Writer

	d          Dialect
	quoteChars string

	// wroteRow is set once any row content has been written.
	wroteRow bool
	// pendingTerminator is set while the output ends with a row that has no terminator yet.
	pendingTerminator bool

	closed bool
	err    error
}

// NewWriter creates a Writer over w. Output is buffered within one write call and
// flushed before the call returns.
func NewWriter(w io.Writer, d Dialect) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	d = d.withDefaults()
	return &Writer{
		dst:        bufio.NewWriterSize(w, defaultBufferSize),
		target:     w,
		d:          d,
		quoteChars: quoteTriggers(d),
	}
}

// quoteTriggers lists the characters forcing QuoteAsNeeded to quote a field.
func quoteTriggers(d Dialect) string {
	var sb strings.Builder
	sb.WriteRune(d.Delimiter)
	sb.WriteRune(d.Quote)
	if d.Escape != d.Quote {
		sb.WriteRune(d.Escape)
	}
	sb.WriteString("\r\n")
	sb.WriteString(d.LineTerminator)
	return sb.String()
}

// Dialect returns the dialect the Writer was created with.
func (w *Writer) Dialect() Dialect {
	return w.d
}

// Reset points the Writer at dst and forgets all terminator state, keeping the dialect.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.dst == nil {
		w.d = w.d.withDefaults()
		w.quoteChars = quoteTriggers(w.d)
		w.dst = bufio.NewWriterSize(dst, defaultBufferSize)
	} else {
		w.dst.Reset(dst)
	}
	w.target = dst
	w.wroteRow = false
	w.pendingTerminator = false
	w.closed = false
	w.err = nil
}

// Write emits a single record of strings.
func (w *Writer) Write(record []string) error {
	if err := w.ready(); err != nil {
		return err
	}
	w.beginRow()
	for i := range record {
		if i > 0 {
			w.writeRune(w.d.Delimiter)
		}
		w.writeField(record[i])
	}
	return w.finish()
}

// WriteRow emits one row. nil fields are written as the dialect's NullValue; other
// values are converted to strings first.
func (w *Writer) WriteRow(fields ...any) error {
	if err := w.ready(); err != nil {
		return err
	}
	w.writeRow(fields)
	return w.finish()
}

// WriteAll writes multiple string records, stopping at the first error.
func (w *Writer) WriteAll(records [][]string) error {
	if err := w.ready(); err != nil {
		return err
	}
	for _, record := range records {
		w.beginRow()
		for i := range record {
			if i > 0 {
				w.writeRune(w.d.Delimiter)
			}
			w.writeField(record[i])
		}
		if w.err != nil {
			return w.check()
		}
	}
	return w.finish()
}

// WriteRows emits a finite batch of rows.
func (w *Writer) WriteRows(rows [][]any) error {
	if err := w.ready(); err != nil {
		return err
	}
	for _, row := range rows {
		w.writeRow(row)
		if w.err != nil {
			return w.check()
		}
	}
	return w.finish()
}

// WriteSeq emits rows pulled from seq, which may be unbounded. Each row, including
// the terminator of the row before it, is flushed to the destination before the next
// row is pulled. Iteration stops at the first write error.
func (w *Writer) WriteSeq(seq iter.Seq[[]any]) error {
	if err := w.ready(); err != nil {
		return err
	}
	for row := range seq {
		w.writeRow(row)
		if w.err == nil {
			w.err = w.dst.Flush()
		}
		if w.err != nil {
			return w.check()
		}
	}
	return w.finish()
}

// Flush flushes pending buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close flushes buffered data and closes the destination if it is an io.Closer.
// Closing twice is a no-op; the Writer never reopens its destination.
func (w *Writer) Close() error {
	if w == nil {
		return errNilWriter
	}
	if w.closed {
		return nil
	}
	w.closed = true

	var result *multierror.Error
	if err := w.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if c, ok := w.target.(io.Closer); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Error reports the first error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

func (w *Writer) ready() error {
	switch {
	case w == nil:
		return errNilWriter
	case w.dst == nil:
		return errWriterNoTarget
	case w.closed:
		return errWriterClosed
	case w.err != nil:
		return fmt.Errorf("%w: %w", ErrWrite, w.err)
	}
	return nil
}

// finish ends a public write operation. It settles the terminator and flushes, so a
// failing destination is reported by the call that wrote to it.
func (w *Writer) finish() error {
	w.endBatch()
	if w.err == nil {
		w.err = w.dst.Flush()
	}
	return w.check()
}

// check turns a sticky sink error into the result of the current operation.
func (w *Writer) check() error {
	if w.err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, w.err)
	}
	return nil
}

// beginRow writes the terminator still owed to the previous row.
func (w *Writer) beginRow() {
	if w.wroteRow && w.pendingTerminator {
		w.writeString(w.d.LineTerminator)
		w.pendingTerminator = false
	}
	w.wroteRow = true
	w.pendingTerminator = true
}

// endBatch settles the terminator after the last row of a write operation.
func (w *Writer) endBatch() {
	if w.d.TrailingTerminator && w.pendingTerminator {
		w.writeString(w.d.LineTerminator)
		w.pendingTerminator = false
	}
}

func (w *Writer) writeRow(row []any) {
	w.beginRow()
	for i, v := range row {
		if i > 0 {
			w.writeRune(w.d.Delimiter)
		}
		if v == nil {
			w.writeString(w.d.NullValue)
			continue
		}
		w.writeField(stringify(v))
	}
}

func (w *Writer) writeField(field string) {
	if !w.needsQuote(field) {
		w.writeString(field)
		return
	}
	w.writeRune(w.d.Quote)

	start := 0
	for i, r := range field {
		if r != w.d.Quote && r != w.d.Escape {
			continue
		}
		w.writeString(field[start:i])
		if r == w.d.Quote {
			w.writeRune(w.d.Quote)
		} else {
			w.writeRune(w.d.Escape)
		}
		w.writeRune(r)
		start = i + utf8.RuneLen(r)
	}
	w.writeString(field[start:])
	w.writeRune(w.d.Quote)
}

func (w *Writer) needsQuote(field string) bool {
	switch w.d.Quoting {
	case QuoteAlways:
		return true
	case QuoteNonNumeric:
		return !isNumeral(field)
	}
	return strings.ContainsAny(field, w.quoteChars)
}

func (w *Writer) writeString(s string) {
	if w.err != nil || s == "" {
		return
	}
	_, w.err = w.dst.WriteString(s)
}

func (w *Writer) writeRune(r rune) {
	if w.err != nil {
		return
	}
	_, w.err = w.dst.WriteRune(r)
}

// isNumeral reports whether s is an optionally signed decimal numeral with at most one
// decimal point. The empty string counts as numeric so it is written bare.
func isNumeral(s string) bool {
	if s == "" {
		return true
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits := 0
	dot := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// stringify renders a non-nil field value.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
