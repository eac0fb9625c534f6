package marketfall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a tagged-union JSON value decoded once at the HTTP boundary.
// Heterogeneous payloads (Binance kline rows, signed-API responses) are
// decoded into Value instead of being carried around as untyped any.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Constructors, mainly for tests and fixtures.

func Null() Value               { return Value{kind: KindNull} }
func BoolValue(b bool) Value    { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value    { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func ArrayValue(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

func ObjectValue(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is JSON null (or the zero Value).
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean variant.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Int64 returns the integer variant. Floats with an integral value also
// convert, matching how upstream APIs freely mix 0 and 0.0.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Float64 returns the numeric variant (integers widen).
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Str returns the string variant.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Len returns the element count for arrays and objects, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

// Index returns the i-th array element; ok is false when out of range
// or not an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Field returns the named object member; ok is false when absent or
// not an object.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	m, ok := v.obj[name]
	return m, ok
}

// Array returns the underlying slice for range loops; nil when not an array.
func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// UnmarshalJSON decodes arbitrary JSON into the tagged union. Numbers are
// decoded with json.Number so 64-bit timestamps survive undamaged.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	decoded, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parsing number %q: %w", t.String(), err)
		}
		return FloatValue(f), nil
	case []any:
		arr := make([]Value, 0, len(t))
		for _, el := range t {
			ev, err := fromAny(el)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, ev)
		}
		return ArrayValue(arr...), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, el := range t {
			ev, err := fromAny(el)
			if err != nil {
				return Value{}, err
			}
			obj[k] = ev
		}
		return ObjectValue(obj), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON value of type %T", raw)
}

// MarshalJSON re-encodes the union; object keys are emitted sorted so the
// output is deterministic.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, el := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := el.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("cannot marshal Value of kind %d", v.kind)
}
