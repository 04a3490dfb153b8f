package expression

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"
)

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toInt reports integers that fit in an int64. Unsigned values above
// math.MaxInt64 are left to bigUint and toFloat.
func toInt(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func bigUint(v any) (uint64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return u, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	if u, ok := bigUint(v); ok {
		return float64(u), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// compareIntegers orders two integers exactly, including unsigned values
// that do not fit in an int64.
func compareIntegers(a, b any) (int, bool) {
	ai, aInt := toInt(a)
	bi, bInt := toInt(b)
	au, aBig := bigUint(a)
	bu, bBig := bigUint(b)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi), true
	case aBig && bBig:
		return cmp.Compare(au, bu), true
	case aBig && bInt:
		return 1, true
	case aInt && bBig:
		return -1, true
	}
	return 0, false
}

// equalValues compares numbers by value regardless of their Go type and
// everything else by deep equality.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	if c, ok := compareIntegers(a, b); ok {
		return c == 0
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func compareValues(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if c, ok := compareIntegers(a, b); ok {
		return c, true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case reflect.Type:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	if v == nil {
		return 0, false
	}
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func containsValue(container, item any) (bool, bool) {
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			return false, false
		}
		return strings.Contains(s, sub), true
	}
	rv := indirect(reflect.ValueOf(container))
	if !rv.IsValid() {
		return false, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equalValues(rv.Index(i).Interface(), item) {
				return true, true
			}
		}
		return false, true
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if equalValues(iter.Key().Interface(), item) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}
