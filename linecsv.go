// # LineCSV: Dialect-Driven CSV Reading and Writing for Go
//
// LineCSV parses and writes CSV text under a configurable dialect: delimiter, quote
// character, escape character, quoting policy, line terminator and null representation.
// Input is consumed as physical lines, so quoted fields that span several lines are
// resumed across calls instead of being buffered up front.
//
// # Features
//
// - Line-at-a-time parser (`Parser.ParseLine`) that reports an open row while a quoted field is still unclosed.
// - Lazy row reader (`Reader.Read`, `Reader.Rows`) over any `LineSource`.
// - Buffered writer with `QuoteAlways`, `QuoteAsNeeded` and `QuoteNonNumeric` policies.
// - Deferred line terminators, so repeated `WriteRows`/`WriteSeq` batches never produce blank rows.
// - Tolerant recovery from malformed quoting, or strict rejection via `Dialect.Strict`.
// - Structured error reporting via `ParseError`, `ErrUnterminatedQuote`, `ErrBareQuote`, `ErrTrailingQuote` and `ErrWrite`.
//
// # Getting Started
//
//	r := linecsv.NewReader(linecsv.ScanLines(f), linecsv.DefaultDialect())
//	for row, err := range r.Rows() {
//		...
//	}
package linecsv
