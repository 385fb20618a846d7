package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks expressions that do not parse.
	ErrSyntax = errors.New("syntax error")
	// ErrUndefinedVariable marks a reference to a name missing from the bindings.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrUnknownFunction marks a call to a name outside the math allow-list.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrType marks an operator or function applied to operands of the wrong type.
	ErrType = errors.New("type error")
)

// Error describes a failed compile or evaluation of a single expression.
type Error struct {
	Expression string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("evaluating %q: %v", e.Expression, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
