// Package schema infers a structural Schema from a set of example Values
// and compares two schemas to produce a diff, including rename detection.
package schema

import (
	"sort"

	"github.com/exampleforge/exampleforge/internal/value"
)

// FieldType is the elected concrete type for a Schema Field (spec §3).
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeFloat   FieldType = "float"
	TypeDecimal FieldType = "decimal"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeTime    FieldType = "time"
	TypeDateTime FieldType = "datetime"
	TypeNull    FieldType = "null"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field is one Schema Field: a typed, dot-path-addressed leaf or container.
type Field struct {
	Path         value.Path
	FieldType    FieldType
	Nullable     bool
	Required     bool
	SampleValues []value.Value
	NestedSchema *Schema
}

// Schema is the ordered set of Fields inferred from a homogeneous value set.
type Schema struct {
	Fields    []Field
	IsNested  bool
	HasArrays bool
}

// FieldByPath looks up a field by its dot-path; used heavily by pattern
// detection and by schema comparison.
func (s *Schema) FieldByPath(p value.Path) (Field, bool) {
	for _, f := range s.Fields {
		if f.Path == p {
			return f, true
		}
	}
	return Field{}, false
}

// observation accumulates per-path statistics during the depth-first walk.
// present tracks the set of top-level example indices in which the path was
// seen at least once — the quantity "required" actually needs — separately
// from the raw number of times the path was visited, which for an
// array-descended path (one "[*]" bucket shared by every item across every
// example) has no fixed relationship to the example count at all.
type observation struct {
	types   map[FieldType]bool
	present map[int]bool
	nulls   int
	samples []value.Value
}

const maxSamples = 3

// InferSchema produces a Schema from a list of example Values, per spec
// §4.2. The walk is depth-first and order-insensitive: shuffling the input
// slice yields an identical Schema up to field order (spec §8).
func InferSchema(values []value.Value) *Schema {
	obs := map[value.Path]*observation{}
	order := []value.Path{}

	for i, v := range values {
		walk(v, "", i, obs, &order)
	}

	fields := make([]Field, 0, len(order))
	hasArrays := false
	isNested := false

	for _, p := range order {
		o := obs[p]
		ft := electType(o.types)
		if ft == TypeArray {
			hasArrays = true
		}
		if ft == TypeObject {
			isNested = true
		}
		fields = append(fields, Field{
			Path:         p,
			FieldType:    ft,
			Nullable:     o.nulls > 0,
			Required:     len(o.present) == len(values),
			SampleValues: o.samples,
		})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })

	return &Schema{Fields: fields, IsNested: isNested, HasArrays: hasArrays}
}

// walk performs the depth-first traversal described in spec §4.2: one
// observation bucket per distinct path, descending into arrays under
// "path[*]" and into objects under "path.child". exampleIdx identifies which
// top-level example this subtree came from, so presence can be counted per
// example rather than per visit.
func walk(v value.Value, path value.Path, exampleIdx int, obs map[value.Path]*observation, order *[]value.Path) {
	switch v.Kind {
	case value.KindObject:
		fields, keys, _ := v.AsObject()
		for _, k := range keys {
			childPath := path.Join(k)
			record(childPath, fields[k], exampleIdx, obs, order)
			walk(fields[k], childPath, exampleIdx, obs, order)
		}
	case value.KindArray:
		items, _ := v.AsArray()
		arrPath := path.JoinArray()
		for _, item := range items {
			record(arrPath, item, exampleIdx, obs, order)
			walk(item, arrPath, exampleIdx, obs, order)
		}
	}
}

func ensure(p value.Path, obs map[value.Path]*observation, order *[]value.Path) *observation {
	o, ok := obs[p]
	if !ok {
		o = &observation{types: map[FieldType]bool{}, present: map[int]bool{}}
		obs[p] = o
		*order = append(*order, p)
	}
	return o
}

func record(p value.Path, v value.Value, exampleIdx int, obs map[value.Path]*observation, order *[]value.Path) {
	o := ensure(p, obs, order)
	o.present[exampleIdx] = true
	observeValue(o, v)
}

func observeValue(o *observation, v value.Value) {
	if v.IsNull() {
		o.nulls++
		o.types[TypeNull] = true
		return
	}
	o.types[kindToType(v.Kind)] = true
	if len(o.samples) < maxSamples {
		o.samples = append(o.samples, v)
	}
}

func kindToType(k value.Kind) FieldType {
	switch k {
	case value.KindBool:
		return TypeBoolean
	case value.KindInt:
		return TypeInteger
	case value.KindFloat:
		return TypeFloat
	case value.KindDecimal:
		return TypeDecimal
	case value.KindString:
		return TypeString
	case value.KindDate:
		return TypeDate
	case value.KindDateTime:
		return TypeDateTime
	case value.KindArray:
		return TypeArray
	case value.KindObject:
		return TypeObject
	default:
		return TypeNull
	}
}

// electType picks the least upper bound of observed concrete types per spec
// §4.2: a single type wins outright; mixed integer+float widens to float;
// any other mix is reported as the highest-ranked observed type in a fixed
// priority order (object, array, string, float, integer, boolean, date,
// datetime, time, decimal); samples still carry the raw evidence for the
// Coder to reconcile.
func electType(observed map[FieldType]bool) FieldType {
	delete(observed, TypeNull)
	if len(observed) == 0 {
		return TypeNull
	}
	if len(observed) == 1 {
		for t := range observed {
			return t
		}
	}
	if observed[TypeInteger] && observed[TypeFloat] && len(observed) == 2 {
		return TypeFloat
	}
	// Deterministic fallback ordering when genuinely heterogeneous.
	priority := []FieldType{TypeObject, TypeArray, TypeString, TypeFloat, TypeInteger, TypeBoolean, TypeDate, TypeDateTime, TypeTime, TypeDecimal}
	for _, t := range priority {
		if observed[t] {
			return t
		}
	}
	return TypeString
}
