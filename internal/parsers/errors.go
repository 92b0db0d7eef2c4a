package parsers

import (
	"errors"
	"fmt"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("parse error")

// ParseError reports malformed input for a dialect.
// Line and Column are zero when the parser gave no position.
type ParseError struct {
	Dialect Dialect
	Src     string
	Line    int
	Column  int
	Msg     string
	Err     error
}

func (e *ParseError) Error() string {
	where := string(e.Dialect)
	if e.Src != "" {
		where = e.Src
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", where, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", where, e.Msg)
}

// Is makes errors.Is(err, ErrParse) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WithSrc returns a copy of err with Src set when err is a ParseError.
func WithSrc(err error, src string) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		cp := *pe
		cp.Src = src
		return &cp
	}
	return err
}
