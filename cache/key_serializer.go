package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySerializer renders a cache key as the string a backend stores it under.
// Equal keys must serialize identically and different keys must not collide.
type KeySerializer interface {
	SerializeKey(key any) string
}

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Values are tagged with their type so that 1, int64(1) and "1" never share a key.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a deterministic string for key.
func (s *defaultKeySerializer) SerializeKey(key any) string {
	switch k := key.(type) {
	case emptyKey:
		return "key:empty"
	case SimpleKey:
		parts := make([]string, len(k.Params))
		for i, p := range k.Params {
			parts[i] = s.serializeValue(p)
		}
		return fmt.Sprintf("key[%d]:{%s}", len(parts), strings.Join(parts, ","))
	}
	return s.serializeValue(key)
}

// KeyHash returns a short, stable hash of a serialized key for backends with
// key length limits.
func KeyHash(serialized string) string {
	return strconv.FormatUint(xxhash.Sum64String(serialized), 16)
}

// visit identifies a reference on the current serialization path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

// serializeValue handles individual value serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}
	return s.serialize(reflect.ValueOf(v), make(map[visit]struct{}))
}

// serialize walks rv through reflection accessors only, so unexported fields
// take part in the key. References already on the path render as a cycle
// marker.
func (s *defaultKeySerializer) serialize(rv reflect.Value, path map[visit]struct{}) string {
	if !rv.IsValid() {
		return "nil"
	}
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		// function identity is only stable within a single process
		return fmt.Sprintf("func:0x%x", rv.Pointer())
	case reflect.Chan:
		return fmt.Sprintf("chan:0x%x", rv.Pointer())
	case reflect.UnsafePointer:
		return fmt.Sprintf("unsafe:0x%x", rv.Pointer())
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
		return s.enter(rv, path, func() string {
			return s.serialize(rv.Elem(), path)
		})
	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.serialize(rv.Elem(), path)
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.enter(rv, path, func() string {
			return s.serializeSequence("slice", rv, path)
		})
	case reflect.Array:
		return s.serializeSequence("array", rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.enter(rv, path, func() string {
			return s.serializeMap(rv, path)
		})
	case reflect.Struct:
		if rv.CanInterface() {
			v := rv.Interface()
			if key, ok := v.(SimpleKey); ok {
				return s.SerializeKey(key)
			}
			// types like time.Time carry their state in unexported fields
			if m, ok := v.(encoding.TextMarshaler); ok {
				if text, err := m.MarshalText(); err == nil {
					return rt.String() + ":" + strconv.Quote(string(text))
				}
			}
		}
		return s.serializeStruct(rv, rt, path)
	case reflect.String:
		if rt.Name() == "string" && rt.PkgPath() == "" {
			return strconv.Quote(rv.String())
		}
		return rt.String() + ":" + strconv.Quote(rv.String())
	}

	if s.isBasicType(rt.Kind()) {
		return rt.String() + ":" + s.formatBasic(rv)
	}

	if rv.CanInterface() {
		return s.jsonFallback(rv.Interface())
	}
	return "fallback:" + rt.String()
}

// enter serializes a reference once per path.
func (s *defaultKeySerializer) enter(rv reflect.Value, path map[visit]struct{}, fn func() string) string {
	id := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if _, ok := path[id]; ok {
		return "cycle:" + rv.Type().String()
	}
	path[id] = struct{}{}
	defer delete(path, id)
	return fn()
}

func (s *defaultKeySerializer) formatBasic(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits())
	default:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, rv.Type().Bits())
	}
}

func (s *defaultKeySerializer) serializeSequence(kind string, rv reflect.Value, path map[visit]struct{}) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serialize(rv.Index(i), path)
	}

	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ","))
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeySerializer) serializeMap(rv reflect.Value, path map[visit]struct{}) string {
	pairs := make([]string, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		k := s.serialize(iter.Key(), path)
		v := s.serialize(iter.Value(), path)
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct renders every field, exported or not, by name.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type, path map[visit]struct{}) string {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		parts = append(parts, rt.Field(i).Name+":"+s.serialize(rv.Field(i), path))
	}

	return fmt.Sprintf("struct %s:{%s}", rt.String(), strings.Join(parts, ","))
}

// isBasicType checks if a kind represents a basic Go type
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
