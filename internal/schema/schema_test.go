package schema

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleforge/exampleforge/internal/value"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestInferSchema_TypeWidening(t *testing.T) {
	vs := []value.Value{
		mustJSON(t, `{"a": 1}`),
		mustJSON(t, `{"a": 1.5}`),
	}
	s := InferSchema(vs)
	f, ok := s.FieldByPath("a")
	require.True(t, ok)
	assert.Equal(t, TypeFloat, f.FieldType, "mixed int+float widens to float")
}

func TestInferSchema_RequiredAndNullable(t *testing.T) {
	vs := []value.Value{
		mustJSON(t, `{"a": 1, "b": null}`),
		mustJSON(t, `{"a": 2}`),
	}
	s := InferSchema(vs)

	a, _ := s.FieldByPath("a")
	assert.True(t, a.Required, "a appears in every example")
	assert.False(t, a.Nullable)

	b, _ := s.FieldByPath("b")
	assert.False(t, b.Required, "b is absent from the second example")
	assert.True(t, b.Nullable)
}

func TestInferSchema_NestedAndArrayPaths(t *testing.T) {
	vs := []value.Value{
		mustJSON(t, `{"weather":[{"description":"rain"}],"m":{"t":15.5}}`),
	}
	s := InferSchema(vs)

	_, ok := s.FieldByPath("weather[*].description")
	require.True(t, ok)
	_, ok = s.FieldByPath("m.t")
	require.True(t, ok)
	assert.True(t, s.HasArrays)
	assert.True(t, s.IsNested)
}

func TestInferSchema_RequiredForArrayDescendedPathTracksExamplesNotItems(t *testing.T) {
	// w[*].d appears in both examples, but with 1 item then 2 items: item
	// count must never leak into the required/example-count comparison.
	vs := []value.Value{
		mustJSON(t, `{"w":[{"d":"rain"}]}`),
		mustJSON(t, `{"w":[{"d":"sun"},{"d":"fog"}]}`),
	}
	s := InferSchema(vs)

	d, ok := s.FieldByPath("w[*].d")
	require.True(t, ok)
	assert.True(t, d.Required, "w[*].d is present in every example regardless of per-example item count")
}

func TestInferSchema_NotRequiredForArrayDescendedPathMissingFromOneExample(t *testing.T) {
	vs := []value.Value{
		mustJSON(t, `{"w":[{"d":"rain"},{"d":"fog"}]}`),
		mustJSON(t, `{"w":[]}`),
	}
	s := InferSchema(vs)

	d, ok := s.FieldByPath("w[*].d")
	require.True(t, ok)
	assert.False(t, d.Required, "w[*].d never appears in the second example's (empty) array")
}

func TestInferSchema_OrderInsensitive(t *testing.T) {
	vs := []value.Value{
		mustJSON(t, `{"a": 1, "b": "x", "c": true}`),
		mustJSON(t, `{"c": false, "a": 2, "b": "y"}`),
	}
	shuffled := make([]value.Value, len(vs))
	copy(shuffled, vs)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	s1 := InferSchema(vs)
	s2 := InferSchema(shuffled)

	require.Equal(t, len(s1.Fields), len(s2.Fields))
	for i := range s1.Fields {
		assert.Equal(t, s1.Fields[i].Path, s2.Fields[i].Path)
		assert.Equal(t, s1.Fields[i].FieldType, s2.Fields[i].FieldType)
	}
}

func TestCompare_AddedRemovedTypeChanged(t *testing.T) {
	a := InferSchema([]value.Value{mustJSON(t, `{"x": 1, "y": "k"}`)})
	b := InferSchema([]value.Value{mustJSON(t, `{"x": "1", "z": true}`)})

	diffs := Compare(a, b)

	var kinds = map[value.Path]DiffKind{}
	for _, d := range diffs {
		kinds[d.Path] = d.Kind
	}
	assert.Equal(t, DiffTypeChanged, kinds["x"])
	assert.Equal(t, DiffAdded, kinds["z"])
	assert.Equal(t, DiffRemoved, kinds["y"])
}

func TestCompare_RenameDetection(t *testing.T) {
	a := InferSchema([]value.Value{
		mustJSON(t, `{"first_name": "Alice"}`),
		mustJSON(t, `{"first_name": "Bob"}`),
	})
	b := InferSchema([]value.Value{
		mustJSON(t, `{"given_name": "Alice"}`),
		mustJSON(t, `{"given_name": "Bob"}`),
	})

	diffs := Compare(a, b)
	require.Len(t, diffs, 1)
	assert.Equal(t, DiffRenamedFrom, diffs[0].Kind)
	assert.Equal(t, value.Path("given_name"), diffs[0].Path)
	assert.Equal(t, value.Path("first_name"), diffs[0].From)
}
