package expression

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSyntax reports an expression that could not be parsed.
	ErrSyntax = errors.New("syntax error")
	// ErrUndefinedVariable reports a reference to a variable the context does not define.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrResultUnavailable reports a #result reference evaluated before the invocation completed.
	ErrResultUnavailable = errors.New("result not available before invocation")
	// ErrUnknownProperty reports a property or index that does not exist on the resolved value.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrUnknownMethod reports a method call that does not exist on the resolved value.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrType reports an operand of the wrong type for an operator or method.
	ErrType = errors.New("type mismatch")
)

// EvaluationError is returned for every parse or evaluation failure.
// Use errors.Is against the package sentinels to classify it.
type EvaluationError struct {
	Expression string
	Pos        int
	Msg        string
	Err        error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("expression %q: %s (position %d): %v", e.Expression, e.Msg, e.Pos, e.Err)
}

// Unwrap returns the sentinel classifying the failure.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func newError(src string, pos int, sentinel error, format string, args ...any) *EvaluationError {
	return &EvaluationError{
		Expression: src,
		Pos:        pos,
		Msg:        fmt.Sprintf(format, args...),
		Err:        sentinel,
	}
}
