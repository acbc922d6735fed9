package compiler

import (
	"errors"
	"fmt"
)

// SourceError is a problem in the program being compiled.
type SourceError struct {
	Range SourceRange
	Msg   string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Range, e.Msg)
}

func sourceErrorf(rng SourceRange, format string, args ...any) *SourceError {
	return &SourceError{Range: rng, Msg: fmt.Sprintf(format, args...)}
}

// ErrInternal marks a compiler invariant violation, such as a tree reaching
// code generation in a state that type resolution should have rejected.
var ErrInternal = errors.New("internal compiler error")

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
