// Package value implements the universal JSON-like value type that flows
// through schema inference, pattern extraction, and prompt rendering.
//
// Go has no dynamic typing, so the sum `null | bool | int | float | decimal |
// string | date | datetime | array | object` is modeled as an explicit tagged
// union rather than recovered through reflection. Every consumer switches on
// Kind; there is no runtime type-assertion path into this package from the
// rest of the module.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"time"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindDate
	KindDateTime
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
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the closed sum type. Exactly one of the typed fields is
// meaningful for a given Kind; zero values of the others are ignored.
type Value struct {
	Kind Kind

	boolVal   bool
	intVal    int64
	floatVal  float64
	decVal    *big.Rat
	stringVal string
	timeVal   time.Time
	arrayVal  []Value
	objectVal map[string]Value
	// objectOrder preserves insertion order for deterministic rendering;
	// map iteration order in Go is randomized and this package is used by
	// the Prompt Builder, which requires byte-stable output.
	objectOrder []string
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, boolVal: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, intVal: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, floatVal: f} }
func Decimal(d *big.Rat) Value   { return Value{Kind: KindDecimal, decVal: d} }
func String(s string) Value      { return Value{Kind: KindString, stringVal: s} }
func Date(t time.Time) Value     { return Value{Kind: KindDate, timeVal: t} }
func DateTime(t time.Time) Value { return Value{Kind: KindDateTime, timeVal: t} }

func Array(items ...Value) Value {
	return Value{Kind: KindArray, arrayVal: items}
}

// Object builds an object value whose key order is the sorted order of the
// supplied map's keys (callers that need a specific order should build
// incrementally with NewObject/Set, which preserves insertion order).
func Object(fields map[string]Value) Value {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Value{Kind: KindObject, objectVal: fields, objectOrder: keys}
}

// NewObject returns an empty object that preserves Set insertion order.
func NewObject() Value {
	return Value{Kind: KindObject, objectVal: map[string]Value{}}
}

// Set inserts or overwrites a field on an object Value in place, appending
// to the order slice only on first insertion. Panics if v is not an object;
// callers are expected to check Kind first, matching the rest of this
// package's no-hidden-coercion discipline.
func (v *Value) Set(key string, val Value) {
	if v.Kind != KindObject {
		panic(fmt.Sprintf("value: Set called on non-object Value (kind=%s)", v.Kind))
	}
	if v.objectVal == nil {
		v.objectVal = map[string]Value{}
	}
	if _, exists := v.objectVal[key]; !exists {
		v.objectOrder = append(v.objectOrder, key)
	}
	v.objectVal[key] = val
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.intVal, true
}

func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.floatVal, true
	case KindInt:
		return float64(v.intVal), true
	}
	return 0, false
}

func (v Value) AsDecimal() (*big.Rat, bool) {
	if v.Kind != KindDecimal {
		return nil, false
	}
	return v.decVal, true
}

func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.stringVal, true
}

func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != KindDate && v.Kind != KindDateTime {
		return time.Time{}, false
	}
	return v.timeVal, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.arrayVal, true
}

// AsObject returns the field map and the keys in insertion/sorted order.
func (v Value) AsObject() (map[string]Value, []string, bool) {
	if v.Kind != KindObject {
		return nil, nil, false
	}
	return v.objectVal, v.objectOrder, true
}

// Field fetches a single field from an object Value, returning the zero
// Value and false if v is not an object or the key is absent.
func (v Value) Field(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	fv, ok := v.objectVal[key]
	return fv, ok
}

// Equal compares two Values for deep, type-exact equality. Int(1) and
// Float(1.0) are NOT equal — type widening is an explicit Schema Analyzer
// decision, never an implicit comparison rule.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindFloat:
		return a.floatVal == b.floatVal
	case KindDecimal:
		if a.decVal == nil || b.decVal == nil {
			return a.decVal == b.decVal
		}
		return a.decVal.Cmp(b.decVal) == 0
	case KindString:
		return a.stringVal == b.stringVal
	case KindDate, KindDateTime:
		return a.timeVal.Equal(b.timeVal)
	case KindArray:
		if len(a.arrayVal) != len(b.arrayVal) {
			return false
		}
		for i := range a.arrayVal {
			if !Equal(a.arrayVal[i], b.arrayVal[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.objectVal) != len(b.objectVal) {
			return false
		}
		for k, av := range a.objectVal {
			bv, ok := b.objectVal[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// FromJSON decodes arbitrary JSON into a Value. Numbers without a decimal
// point or exponent become KindInt; everything else numeric becomes
// KindFloat. Date/datetime recognition is deliberately NOT performed here —
// that inference belongs to the Schema Analyzer, which sees the whole
// example set, not one decoded leaf at a time.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("value: decode json: %w", err)
	}
	return fromAny(raw), nil
}

func fromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		f, _ := t.Float64()
		return Float(f)
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, elem := range t {
			items[i] = fromAny(elem)
		}
		return Array(items...)
	case map[string]interface{}:
		obj := NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, fromAny(t[k]))
		}
		return obj
	default:
		return Null()
	}
}

// MarshalJSON renders a Value back to JSON, preserving object field order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindInt:
		return json.Marshal(v.intVal)
	case KindFloat:
		return json.Marshal(v.floatVal)
	case KindDecimal:
		if v.decVal == nil {
			return []byte("null"), nil
		}
		return json.Marshal(v.decVal.FloatString(10))
	case KindString:
		return json.Marshal(v.stringVal)
	case KindDate:
		return json.Marshal(v.timeVal.Format("2006-01-02"))
	case KindDateTime:
		return json.Marshal(v.timeVal.Format(time.RFC3339))
	case KindArray:
		return json.Marshal(v.arrayVal)
	case KindObject:
		var buf []byte
		buf = append(buf, '{')
		for i, k := range v.objectOrder {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.objectVal[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	}
	return []byte("null"), nil
}
