package sesh

import (
	"encoding/base64"
	"encoding/json"

	cbor "github.com/fxamacker/cbor/v2"
)

// Kind discriminates the variants a Value can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindBytes
	KindArray
	KindMap
)

// Value is a loosely-typed tagged union for arbitrary session payloads. It
// mirrors a JSON-like data model with two deliberate departures: non-finite
// floats are rejected rather than coerced to null (see Number), and byte
// arrays are their own variant instead of being encoded as arrays of
// integers.
type Value struct {
	kind  Kind
	b     bool
	num   Number
	s     string
	bytes []byte
	arr   []Value
	mp    *Map
}

// Null returns the Null value. It's also the zero value of Value.
func Null() Value { return Value{kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps a Number.
func NumberValue(n Number) Value { return Value{kind: KindNumber, num: n} }

// IntValue wraps a signed integer as a Number.
func IntValue(v int64) Value { return NumberValue(NumberFromInt(v)) }

// UintValue wraps an unsigned integer as a Number.
func UintValue(v uint64) Value { return NumberValue(NumberFromUint(v)) }

// FloatValue wraps a finite float64 as a Number. It panics on NaN/Inf --
// use NumberFromFloat directly when the input isn't known to be finite.
func FloatValue(v float64) Value {
	n, err := NumberFromFloat(v)
	if err != nil {
		panic(err)
	}
	return NumberValue(n)
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// BytesValue wraps a byte slice.
func BytesValue(b []byte) Value { return Value{kind: KindBytes, bytes: b} }

// ArrayValue wraps a slice of Values.
func ArrayValue(vs []Value) Value { return Value{kind: KindArray, arr: vs} }

// MapValue wraps a *Map. A nil Map is treated the same as an empty one.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, mp: m}
}

// Kind returns the value's variant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsBytes() bool  { return v.kind == KindBytes }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsMap() bool    { return v.kind == KindMap }

// IsU64 reports whether the value is a Number stored as a non-negative integer.
func (v Value) IsU64() bool { return v.kind == KindNumber && v.num.IsUint() }

// IsI64 reports whether the value is a Number representable as an int64.
func (v Value) IsI64() bool {
	if v.kind != KindNumber {
		return false
	}
	_, ok := v.num.AsInt()
	return ok
}

// IsF64 reports whether the value is a Number stored as a float.
func (v Value) IsF64() bool { return v.kind == KindNumber && v.num.IsFloat() }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (Number, bool) {
	if v.kind != KindNumber {
		return Number{}, false
	}
	return v.num, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.bytes, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.mp, true
}

// Take replaces v with Null in place and returns the value it held.
func (v *Value) Take() Value {
	old := *v
	*v = Null()
	return old
}

// Index performs read-only container indexing. A string key looks up a Map
// entry; an int key looks up an Array element. Indexing a non-container, or
// indexing with the wrong key type, or an out-of-range array index, all
// return the Null sentinel rather than an error.
func (v Value) Index(key any) Value {
	switch k := key.(type) {
	case string:
		if v.kind != KindMap {
			return Null()
		}
		val, ok := v.mp.Get(k)
		if !ok {
			return Null()
		}
		return val
	case int:
		if v.kind != KindArray || k < 0 || k >= len(v.arr) {
			return Null()
		}
		return v.arr[k]
	default:
		return Null()
	}
}

// SetIndex stores value under key. Indexing a Null receiver with a string
// key upgrades it in place to an empty Map before inserting, per the
// design's "mutable index into Null upgrades to Map" rule.
func (v *Value) SetIndex(key string, value Value) {
	if v.kind == KindNull {
		*v = MapValue(NewMap())
	}
	if v.kind != KindMap {
		return
	}
	v.mp.Insert(key, value)
}

// Equal performs a structural, variant-strict comparison.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num.Equal(other.num)
	case KindString:
		return v.s == other.s
	case KindBytes:
		return string(v.bytes) == string(other.bytes)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.mp.Equal(other.mp)
	}
	return false
}

// wireBytes is the self-describing JSON envelope used to disambiguate a
// ByteArray from a String, since JSON has no native binary type.
type wireBytes struct {
	Bytes string `json:"$bytes"`
}

// MarshalJSON implements json.Marshaler. Null/Bool/Number/String/Array/Map
// map onto their natural JSON counterparts; ByteArray is tagged so
// UnmarshalJSON can tell it apart from String on the way back.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return v.num.marshalJSON()
	case KindString:
		return json.Marshal(v.s)
	case KindBytes:
		return json.Marshal(wireBytes{Bytes: base64.StdEncoding.EncodeToString(v.bytes)})
	case KindArray:
		return json.Marshal(v.arr)
	case KindMap:
		return json.Marshal(v.mp.toPlainMap())
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler, delegating to Go's
// deserialize-any behavior (json.Unmarshal into `any`) for variant
// discovery, as the design requires of any codec used with Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(x), nil
	case float64:
		n, err := NumberFromFloat(x)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case string:
		return StringValue(x), nil
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			ev, err := valueFromAny(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = ev
		}
		return ArrayValue(vs), nil
	case map[string]any:
		if len(x) == 1 {
			if enc, ok := x["$bytes"].(string); ok {
				b, err := base64.StdEncoding.DecodeString(enc)
				if err == nil {
					return BytesValue(b), nil
				}
			}
		}
		m := NewMap()
		for k, e := range x {
			ev, err := valueFromAny(e)
			if err != nil {
				return Value{}, err
			}
			m.Insert(k, ev)
		}
		return MapValue(m), nil
	default:
		return Null(), nil
	}
}

func (m *Map) toPlainMap() map[string]Value {
	out := make(map[string]Value, m.Len())
	for _, e := range m.Iter() {
		out[e.Key] = e.Value
	}
	return out
}

// MarshalCBOR implements cbor.Marshaler for the fxamacker/cbor codec, used
// as the second pluggable, self-describing Codec (see codec.go). CBOR has
// a native byte-string major type, so ByteArray round-trips without the
// JSON envelope trick.
func (v Value) MarshalCBOR() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return cbor.Marshal(nil)
	case KindBool:
		return cbor.Marshal(v.b)
	case KindNumber:
		return v.num.marshalCBOR()
	case KindString:
		return cbor.Marshal(v.s)
	case KindBytes:
		return cbor.Marshal(v.bytes)
	case KindArray:
		return cbor.Marshal(v.arr)
	case KindMap:
		// Sort keys so equal Maps always encode to the same bytes.
		em, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, err
		}
		return em.Marshal(v.mp.toPlainMap())
	}
	return cbor.Marshal(nil)
}

// UnmarshalCBOR implements cbor.Unmarshaler, again delegating to
// deserialize-any (decoding into `any`) for variant discovery.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	val, err := valueFromCBORAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func valueFromCBORAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return BoolValue(x), nil
	case []byte:
		return BytesValue(x), nil
	case string:
		return StringValue(x), nil
	case uint64:
		return NumberValue(NumberFromUint(x)), nil
	case int64:
		return NumberValue(NumberFromInt(x)), nil
	case float64:
		n, err := NumberFromFloat(x)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			ev, err := valueFromCBORAny(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = ev
		}
		return ArrayValue(vs), nil
	case map[any]any:
		m := NewMap()
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			ev, err := valueFromCBORAny(e)
			if err != nil {
				return Value{}, err
			}
			m.Insert(ks, ev)
		}
		return MapValue(m), nil
	default:
		return Null(), nil
	}
}

func (n Number) marshalJSON() ([]byte, error) {
	switch n.kind {
	case numberPositiveInt:
		return json.Marshal(n.u)
	case numberNegativeInt:
		return json.Marshal(n.i)
	default:
		return json.Marshal(n.f)
	}
}

func (n Number) marshalCBOR() ([]byte, error) {
	switch n.kind {
	case numberPositiveInt:
		return cbor.Marshal(n.u)
	case numberNegativeInt:
		return cbor.Marshal(n.i)
	default:
		return cbor.Marshal(n.f)
	}
}
