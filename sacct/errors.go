package sacct

import (
	"errors"
	"fmt"

	"slurmstat/hostglob"
)

// The error kinds for a record that could not be parsed.  All are local to one input line.
var (
	// MT: Constant after initialization; immutable
	ErrMalformedRecord     = errors.New("Malformed record")
	ErrMalformedTimestamp  = errors.New("Malformed timestamp")
	ErrInvalidResourceSpec = errors.New("Invalid resource spec")
	ErrInvalidNodeList     = hostglob.ErrInvalidNodeList
)

// ParseError carries the raw line and the reason it was rejected.  errors.Is(err, kind) holds for
// the kind of the error.
type ParseError struct {
	Line   string
	Kind   error
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s, in record %q", e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func newParseError(line string, kind error, format string, args ...any) *ParseError {
	return &ParseError{
		Line:   line,
		Kind:   kind,
		Reason: kind.Error() + ": " + fmt.Sprintf(format, args...),
	}
}

// An ErrorHandler decides the fate of a run when a record can't be parsed: returning nil drops the
// record and continues, returning an error aborts the run with that error.
type ErrorHandler func(*ParseError) error

// SkipErrors drops every bad record.
func SkipErrors(*ParseError) error {
	return nil
}

// AbortOnError stops at the first bad record.
func AbortOnError(e *ParseError) error {
	return e
}

// CountErrors returns a handler that drops bad records and counts them in *count, calling report
// (if not nil) for each.
func CountErrors(count *int, report func(*ParseError)) ErrorHandler {
	return func(e *ParseError) error {
		*count++
		if report != nil {
			report(e)
		}
		return nil
	}
}
