package expression

import "reflect"

// Method identifies the intercepted method for the root variables.
type Method struct {
	Name      string
	Signature string
}

// Context is the per-invocation evaluation context. It is a value: copies
// never share the bound result.
type Context struct {
	Method     Method
	Params     []string
	Args       []any
	Target     any
	TargetType reflect.Type
	Caches     []string

	result    any
	hasResult bool
}

// WithResult returns a copy of the context with the invocation result bound.
func (c Context) WithResult(result any) Context {
	c.result = result
	c.hasResult = true
	return c
}

// WithCaches returns a copy of the context exposing the given cache names.
func (c Context) WithCaches(names []string) Context {
	c.Caches = names
	return c
}

// Result returns the bound result and whether one is available.
func (c Context) Result() (any, bool) {
	return c.result, c.hasResult
}

// rootObject backs #root and the bare root properties.
type rootObject struct {
	ctx Context
}

type methodObject struct {
	method Method
}

func (r rootObject) property(name string) (any, bool) {
	switch name {
	case "methodName":
		return r.ctx.Method.Name, true
	case "method":
		return methodObject{method: r.ctx.Method}, true
	case "target":
		return r.ctx.Target, true
	case "targetClass":
		if r.ctx.TargetType != nil {
			return r.ctx.TargetType, true
		}
		if r.ctx.Target != nil {
			return reflect.TypeOf(r.ctx.Target), true
		}
		return nil, true
	case "args":
		return r.ctx.Args, true
	case "caches":
		return r.ctx.Caches, true
	}
	return nil, false
}

func (m methodObject) property(name string) (any, bool) {
	switch name {
	case "name":
		return m.method.Name, true
	case "signature":
		return m.method.Signature, true
	}
	return nil, false
}

func (m methodObject) String() string {
	if m.method.Signature != "" {
		return m.method.Signature
	}
	return m.method.Name
}
