package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator delimits segments of a cache key.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection. Query
// arguments are typically filter structs, id strings, and option slices;
// the serializer renders them deterministically so repeated queries hit the
// same cache entry, falling back to JSON for anything it does not recognize.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from an operation name and its arguments.
func (s *defaultKeySerializer) SerializeKey(op string, args ...any) string {
	if len(args) == 0 {
		return op
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, op)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeList("slice", rv)

	case reflect.Array:
		return s.serializeList("array", rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)

	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeList(label string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, length, strings.Join(parts, ","))
}

// serializeMap renders key=value pairs sorted by serialized key so map
// iteration order never leaks into the cache key.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	keys := rv.MapKeys()

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		keyStr := s.serializeValue(k.Interface())
		valStr := s.serializeValue(rv.MapIndex(k).Interface())
		pairs = append(pairs, fmt.Sprintf("%s=%s", keyStr, valStr))
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", field.Name, s.serializeValue(fieldValue.Interface())))
	}

	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback serializes anything the switch above could not handle. When
// even JSON fails (channels, funcs) it degrades to type information so key
// generation never panics mid-request.
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
