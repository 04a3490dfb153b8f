package cache

import (
	"reflect"
	"strings"
)

type emptyKey struct{}

func (emptyKey) String() string { return "SimpleKey[]" }

// EmptyKey is the key generated for calls without arguments.
var EmptyKey any = emptyKey{}

// SimpleKey is the generated key for calls with more than one argument.
// It keeps the raw arguments so two keys are equal only when every argument
// is deeply equal.
type SimpleKey struct {
	Params []any
}

// NewSimpleKey copies params into a new key.
func NewSimpleKey(params ...any) SimpleKey {
	return SimpleKey{Params: append([]any(nil), params...)}
}

// Equal reports whether other is a SimpleKey with deeply equal params.
func (k SimpleKey) Equal(other any) bool {
	o, ok := other.(SimpleKey)
	if !ok {
		return false
	}
	return reflect.DeepEqual(k.Params, o.Params)
}

// String renders the key using the default serializer.
func (k SimpleKey) String() string {
	parts := make([]string, len(k.Params))
	s := &defaultKeySerializer{}
	for i, p := range k.Params {
		parts[i] = s.serializeValue(p)
	}
	return "SimpleKey[" + strings.Join(parts, ",") + "]"
}

// KeyGenerator derives a cache key when an operation declares no key expression.
type KeyGenerator interface {
	Generate(target any, method string, args ...any) any
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func(target any, method string, args ...any) any

// Generate implements KeyGenerator.
func (f KeyGeneratorFunc) Generate(target any, method string, args ...any) any {
	return f(target, method, args...)
}

// SimpleKeyGenerator returns EmptyKey for no arguments, the argument itself
// for a single argument, and a SimpleKey otherwise.
type SimpleKeyGenerator struct{}

// NewSimpleKeyGenerator returns the default key generator.
func NewSimpleKeyGenerator() KeyGenerator {
	return SimpleKeyGenerator{}
}

// Generate implements KeyGenerator.
func (SimpleKeyGenerator) Generate(_ any, _ string, args ...any) any {
	switch len(args) {
	case 0:
		return EmptyKey
	case 1:
		if args[0] != nil {
			return args[0]
		}
	}
	return NewSimpleKey(args...)
}
