package expression

import (
	"regexp"
	"strconv"
)

// Expression is a parsed, immutable expression safe for concurrent evaluation.
type Expression struct {
	src  string
	root node
}

// Parse compiles src into an Expression.
func Parse(src string) (*Expression, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expression{src: src, root: root}, nil
}

// MustParse is like Parse but panics on error. Intended for package level declarations.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expression) String() string {
	return e.src
}

// Eval evaluates the expression against ctx.
func (e *Expression) Eval(ctx Context) (any, error) {
	ev := &evaluator{src: e.src, ctx: ctx}
	return ev.eval(e.root)
}

// EvalBool evaluates the expression and requires a boolean outcome.
func (e *Expression) EvalBool(ctx Context) (bool, error) {
	v, err := e.Eval(ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, newError(e.src, 0, ErrType, "expected boolean result, got %T", v)
	}
	return b, nil
}

// References reports whether the expression reads the '#name' variable.
func (e *Expression) References(name string) bool {
	found := false
	walk(e.root, func(n node) {
		if v, ok := n.(*variableNode); ok && v.name == name {
			found = true
		}
	})
	return found
}

var positionalRef = regexp.MustCompile(`^[ap](\d+)$`)

// positional resolves #p0/#a0 style names to an argument index.
func positional(name string) (int, bool) {
	m := positionalRef.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}
