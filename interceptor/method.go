package interceptor

import (
	"context"
	"strings"
)

// Method identifies an intercepted method. ID is the call-site key used to
// look up declarations.
type Method struct {
	Owner  string
	Name   string
	Params []string
}

// NewMethod builds a Method for owner.name with the given parameter names.
func NewMethod(owner, name string, params ...string) Method {
	return Method{Owner: owner, Name: name, Params: params}
}

// ID returns "Owner.Name", or Name when there is no owner.
func (m Method) ID() string {
	if m.Owner == "" {
		return m.Name
	}
	return m.Owner + "." + m.Name
}

// Signature returns the method with its parameter names, e.g. "Books.find(isbn)".
func (m Method) Signature() string {
	return m.ID() + "(" + strings.Join(m.Params, ", ") + ")"
}

// ProceedFunc runs the guarded target with the arguments already bound.
type ProceedFunc func(ctx context.Context) (any, error)

// Invocation is one intercepted call.
type Invocation struct {
	Method  Method
	Target  any
	Args    []any
	Proceed ProceedFunc
}
