// Package metadata models parsed front matter as a tagged value tree.
//
// Decoders (YAML, TOML, JSON) produce loosely typed Go values; FromAny folds
// them into Value so the rest of the indexer can inspect kinds explicitly
// instead of type-switching on interface{} everywhere.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindList
	KindMap
)

var kindNames = [...]string{"null", "string", "int", "float", "bool", "time", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one node of a metadata tree. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	t    time.Time
	list []Value
	m    Map
}

// Map is a front matter mapping.
type Map map[string]Value

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps s.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps n.
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float wraps f.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool wraps b.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time wraps t.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List wraps items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Object wraps m.
func Object(m Map) Value {
	if m == nil {
		m = Map{}
	}
	return Value{kind: KindMap, m: m}
}

// FromAny converts decoder output into a Value. Unknown types are stringified.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n)
		}
		f, _ := x.Float64()
		return Float(f)
	case time.Time:
		return Time(x)
	case []any:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = FromAny(item)
		}
		return List(out...)
	case []map[string]any:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = FromAny(item)
		}
		return List(out...)
	case []string:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = String(item)
		}
		return List(out...)
	case map[string]any:
		return Object(MapFromAny(x))
	case map[any]any:
		m := make(Map, len(x))
		for k, item := range x {
			m[fmt.Sprint(k)] = FromAny(item)
		}
		return Object(m)
	case Map:
		return Object(x)
	default:
		return String(fmt.Sprint(x))
	}
}

// fromUint keeps integers above math.MaxInt64 exact by storing their
// decimal text.
func fromUint(x uint64) Value {
	if x > math.MaxInt64 {
		return String(strconv.FormatUint(x, 10))
	}
	return Int(int64(x))
}

// MapFromAny converts a decoded mapping into a Map.
func MapFromAny(in map[string]any) Map {
	m := make(Map, len(in))
	for k, v := range in {
		m[k] = FromAny(v)
	}
	return m
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Time returns the time payload.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTime }

// List returns the list payload.
func (v Value) List() ([]Value, bool) { return v.list, v.kind == KindList }

// Map returns the mapping payload.
func (v Value) Map() (Map, bool) { return v.m, v.kind == KindMap }

// Truthy mirrors the "is this field set" check front matter authors expect:
// null, empty string, zero numbers and false are unset; lists and maps are set.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return v.str != ""
	case KindInt:
		return v.num != 0
	case KindFloat:
		return v.flt != 0
	case KindBool:
		return v.b
	case KindTime:
		return !v.t.IsZero()
	default:
		return true
	}
}

// Text renders scalars as strings. Lists and maps render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindList, KindMap, KindNull:
		return ""
	default:
		return cast.ToString(v.Interface())
	}
}

// Interface converts v back into plain Go values suitable for encoding.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.m.Interface()
	default:
		return nil
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers stay integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("metadata: decode value: %w", err)
	}
	*v = FromAny(raw)
	return nil
}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports deep equality.
func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Interface converts m into a plain map.
func (m Map) Interface() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (m Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	mm, ok := v.Map()
	if !ok {
		if v.IsNull() {
			*m = nil
			return nil
		}
		return fmt.Errorf("metadata: expected object, got %s", v.Kind())
	}
	*m = mm
	return nil
}
