package interceptor

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Call runs fn through the interceptor and returns the result as T. A nil
// pointer, map, slice or interface returned by fn is treated as an absent
// result and cached as such.
//
// Values read back from byte oriented caches come as generic types; they are
// converted to T with a msgpack round trip.
func Call[T any](ctx context.Context, i *Interceptor, method Method, target any, fn func(ctx context.Context) (T, error), args ...any) (T, error) {
	var zero T

	v, err := i.Invoke(ctx, Invocation{
		Method: method,
		Target: target,
		Args:   args,
		Proceed: func(ctx context.Context) (any, error) {
			result, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return normalizeNil(result), nil
		},
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}

	var out T
	if err := convert(v, &out); err != nil {
		return zero, errors.Wrapf(ErrTypeMismatch, "%s: got %T, want %T: %v", method.ID(), v, zero, err)
	}
	return out, nil
}

func normalizeNil(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}

func convert(in any, out any) error {
	data, err := msgpack.Marshal(in)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(data, out)
}
