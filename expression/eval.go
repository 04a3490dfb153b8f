package expression

import (
	"math"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

type evaluator struct {
	src string
	ctx Context
}

func (ev *evaluator) fail(n node, sentinel error, format string, args ...any) error {
	return newError(ev.src, n.position(), sentinel, format, args...)
}

func (ev *evaluator) eval(n node) (any, error) {
	switch t := n.(type) {
	case *literalNode:
		return t.value, nil
	case *variableNode:
		return ev.variable(t)
	case *rootPropertyNode:
		v, ok := rootObject{ctx: ev.ctx}.property(t.name)
		if !ok {
			return nil, ev.fail(t, ErrUndefinedVariable, "undefined identifier %q", t.name)
		}
		return v, nil
	case *propertyNode:
		recv, err := ev.eval(t.recv)
		if err != nil {
			return nil, err
		}
		return ev.property(t, recv, t.name)
	case *indexNode:
		recv, err := ev.eval(t.recv)
		if err != nil {
			return nil, err
		}
		idx, err := ev.eval(t.index)
		if err != nil {
			return nil, err
		}
		return ev.index(t, recv, idx)
	case *callNode:
		recv, err := ev.eval(t.recv)
		if err != nil {
			return nil, err
		}
		args := make([]any, len(t.args))
		for i, a := range t.args {
			if args[i], err = ev.eval(a); err != nil {
				return nil, err
			}
		}
		return ev.call(t, recv, args)
	case *unaryNode:
		return ev.unary(t)
	case *binaryNode:
		return ev.binary(t)
	}
	return nil, newError(ev.src, 0, ErrSyntax, "unsupported node %T", n)
}

func (ev *evaluator) variable(n *variableNode) (any, error) {
	switch n.name {
	case "root":
		return rootObject{ctx: ev.ctx}, nil
	case "result":
		result, ok := ev.ctx.Result()
		if !ok {
			return nil, ev.fail(n, ErrResultUnavailable, "#result referenced before invocation")
		}
		return result, nil
	case "args":
		return ev.ctx.Args, nil
	}

	for i, param := range ev.ctx.Params {
		if param == n.name && i < len(ev.ctx.Args) {
			return ev.ctx.Args[i], nil
		}
	}

	if idx, ok := positional(n.name); ok {
		if idx >= len(ev.ctx.Args) {
			return nil, ev.fail(n, ErrUndefinedVariable, "#%s out of range: %d arguments", n.name, len(ev.ctx.Args))
		}
		return ev.ctx.Args[idx], nil
	}

	return nil, ev.fail(n, ErrUndefinedVariable, "undefined variable #%s", n.name)
}

func (ev *evaluator) property(n node, recv any, name string) (any, error) {
	switch r := recv.(type) {
	case rootObject:
		if v, ok := r.property(name); ok {
			return v, nil
		}
		return nil, ev.fail(n, ErrUnknownProperty, "root has no property %q", name)
	case methodObject:
		if v, ok := r.property(name); ok {
			return v, nil
		}
		return nil, ev.fail(n, ErrUnknownProperty, "method has no property %q", name)
	}

	rv := indirect(reflect.ValueOf(recv))
	if !rv.IsValid() {
		return nil, ev.fail(n, ErrType, "property %q on null", name)
	}

	switch rv.Kind() {
	case reflect.Struct:
		if f, ok := fieldByName(rv, name); ok {
			return f.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return nil, nil
			}
			return v.Interface(), nil
		}
	}

	return nil, ev.fail(n, ErrUnknownProperty, "%T has no property %q", recv, name)
}

func (ev *evaluator) index(n node, recv, idx any) (any, error) {
	rv := indirect(reflect.ValueOf(recv))
	if !rv.IsValid() {
		return nil, ev.fail(n, ErrType, "index on null")
	}

	switch rv.Kind() {
	case reflect.String:
		i, ok := toInt(idx)
		if !ok {
			return nil, ev.fail(n, ErrType, "index must be an integer, got %T", idx)
		}
		runes := []rune(rv.String())
		if i < 0 || i >= int64(len(runes)) {
			return nil, ev.fail(n, ErrUnknownProperty, "index %d out of range [0,%d)", i, len(runes))
		}
		return string(runes[i]), nil
	case reflect.Slice, reflect.Array:
		i, ok := toInt(idx)
		if !ok {
			return nil, ev.fail(n, ErrType, "index must be an integer, got %T", idx)
		}
		if i < 0 || i >= int64(rv.Len()) {
			return nil, ev.fail(n, ErrUnknownProperty, "index %d out of range [0,%d)", i, rv.Len())
		}
		return rv.Index(int(i)).Interface(), nil
	case reflect.Map:
		key := reflect.ValueOf(idx)
		keyType := rv.Type().Key()
		if !key.IsValid() {
			return nil, ev.fail(n, ErrType, "map key is null")
		}
		if !key.Type().AssignableTo(keyType) {
			if !key.Type().ConvertibleTo(keyType) {
				return nil, ev.fail(n, ErrType, "map key %T not usable as %s", idx, keyType)
			}
			key = key.Convert(keyType)
		}
		v := rv.MapIndex(key)
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if name, ok := idx.(string); ok {
			return ev.property(n, recv, name)
		}
	}

	return nil, ev.fail(n, ErrType, "%T is not indexable", recv)
}

func (ev *evaluator) unary(n *unaryNode) (any, error) {
	v, err := ev.eval(n.operand)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		b, ok := v.(bool)
		if !ok {
			return nil, ev.fail(n, ErrType, "operator ! needs a boolean, got %T", v)
		}
		return !b, nil
	case "-":
		if i, ok := toInt(v); ok {
			return -i, nil
		}
		if f, ok := toFloat(v); ok {
			return -f, nil
		}
		return nil, ev.fail(n, ErrType, "operator - needs a number, got %T", v)
	}
	return nil, ev.fail(n, ErrSyntax, "unknown unary operator %q", n.op)
}

func (ev *evaluator) binary(n *binaryNode) (any, error) {
	left, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}

	if n.op == "&&" || n.op == "||" {
		lb, ok := left.(bool)
		if !ok {
			return nil, ev.fail(n, ErrType, "operator %s needs booleans, got %T", n.op, left)
		}
		if (n.op == "&&" && !lb) || (n.op == "||" && lb) {
			return lb, nil
		}
		right, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, ev.fail(n, ErrType, "operator %s needs booleans, got %T", n.op, right)
		}
		return rb, nil
	}

	right, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equalValues(left, right), nil
	case "!=":
		return !equalValues(left, right), nil
	case "<", "<=", ">", ">=":
		c, ok := compareValues(left, right)
		if !ok {
			return nil, ev.fail(n, ErrType, "cannot compare %T with %T", left, right)
		}
		switch n.op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case "+":
		_, ls := left.(string)
		_, rs := right.(string)
		if ls || rs {
			return stringify(left) + stringify(right), nil
		}
	}

	return ev.arithmetic(n, left, right)
}

func (ev *evaluator) arithmetic(n *binaryNode, left, right any) (any, error) {
	li, lok := toInt(left)
	ri, rok := toInt(right)
	if lok && rok {
		switch n.op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/", "%":
			if ri == 0 {
				return nil, ev.fail(n, ErrType, "division by zero")
			}
			if n.op == "/" {
				return li / ri, nil
			}
			return li % ri, nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, ev.fail(n, ErrType, "operator %s needs numbers, got %T and %T", n.op, left, right)
	}
	switch n.op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		return lf / rf, nil
	case "%":
		return math.Mod(lf, rf), nil
	}
	return nil, ev.fail(n, ErrSyntax, "unknown operator %q", n.op)
}

func (ev *evaluator) call(n *callNode, recv any, args []any) (any, error) {
	if v, handled, err := ev.builtin(n, recv, args); handled {
		return v, err
	}

	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return nil, ev.fail(n, ErrType, "method %s() on null", n.name)
	}

	m := methodByName(rv, n.name)
	if !m.IsValid() {
		return nil, ev.fail(n, ErrUnknownMethod, "%T has no method %s()", recv, n.name)
	}

	mt := m.Type()
	if mt.IsVariadic() || mt.NumIn() != len(args) {
		return nil, ev.fail(n, ErrUnknownMethod, "%T.%s() takes %d arguments, got %d", recv, n.name, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		arg, ok := coerce(a, mt.In(i))
		if !ok {
			return nil, ev.fail(n, ErrType, "argument %d of %s(): cannot use %T as %s", i, n.name, a, mt.In(i))
		}
		in[i] = arg
	}

	out := m.Call(in)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if errType := reflect.TypeOf((*error)(nil)).Elem(); mt.Out(1).Implements(errType) {
			if !out[1].IsNil() {
				return nil, ev.fail(n, out[1].Interface().(error), "%s() failed", n.name)
			}
			return out[0].Interface(), nil
		}
	}
	return nil, ev.fail(n, ErrUnknownMethod, "%T.%s() must return a value", recv, n.name)
}

// builtin implements the fixed method set available on every value.
func (ev *evaluator) builtin(n *callNode, recv any, args []any) (any, bool, error) {
	arity := func(want int) error {
		if len(args) != want {
			return ev.fail(n, ErrUnknownMethod, "%s() takes %d arguments, got %d", n.name, want, len(args))
		}
		return nil
	}

	switch n.name {
	case "equals":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		return equalValues(recv, args[0]), true, nil
	case "toString":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		return stringify(recv), true, nil
	case "hashCode":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		return int64(xxhash.Sum64String(stringify(recv))), true, nil
	case "length", "size", "isEmpty":
		l, ok := length(recv)
		if !ok {
			return nil, false, nil
		}
		if err := arity(0); err != nil {
			return nil, true, err
		}
		if n.name == "isEmpty" {
			return l == 0, true, nil
		}
		return int64(l), true, nil
	case "contains":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		v, ok := containsValue(recv, args[0])
		if !ok {
			return nil, false, nil
		}
		return v, true, nil
	case "startsWith", "endsWith":
		s, ok := recv.(string)
		if !ok {
			return nil, false, nil
		}
		if err := arity(1); err != nil {
			return nil, true, err
		}
		prefix, ok := args[0].(string)
		if !ok {
			return nil, true, ev.fail(n, ErrType, "%s() needs a string argument, got %T", n.name, args[0])
		}
		if n.name == "startsWith" {
			return strings.HasPrefix(s, prefix), true, nil
		}
		return strings.HasSuffix(s, prefix), true, nil
	case "toUpperCase", "toLowerCase":
		s, ok := recv.(string)
		if !ok {
			return nil, false, nil
		}
		if err := arity(0); err != nil {
			return nil, true, err
		}
		if n.name == "toUpperCase" {
			return strings.ToUpper(s), true, nil
		}
		return strings.ToLower(s), true, nil
	}
	return nil, false, nil
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func fieldByName(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	if f, ok := rt.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index), true
	}
	if f, ok := rt.FieldByName(capitalize(name)); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index), true
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func methodByName(rv reflect.Value, name string) reflect.Value {
	if m := rv.MethodByName(name); m.IsValid() {
		return m
	}
	return rv.MethodByName(capitalize(name))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func coerce(v any, want reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(want) {
		return rv, true
	}
	if isNumberKind(rv.Kind()) && isNumberKind(want.Kind()) {
		return rv.Convert(want), true
	}
	return reflect.Value{}, false
}
