package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_TypeExact(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Float(1.0)), "int and float must not compare equal without explicit widening")
	assert.True(t, Equal(Null(), Null()))
	assert.False(t, Equal(Null(), Bool(false)))
}

func TestEqual_Array(t *testing.T) {
	a := Array(Int(1), String("x"))
	b := Array(Int(1), String("x"))
	c := Array(Int(1), String("y"))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestObject_SetPreservesOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("b", Int(2))
	obj.Set("a", Int(1))
	_, order, ok := obj.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, order)

	obj.Set("b", Int(20))
	_, order, _ = obj.AsObject()
	assert.Equal(t, []string{"b", "a"}, order, "re-setting an existing key must not move it")
}

func TestFromJSON_IntVsFloat(t *testing.T) {
	v, err := FromJSON([]byte(`{"a": 1, "b": 1.5}`))
	require.NoError(t, err)

	av, ok := v.Field("a")
	require.True(t, ok)
	assert.Equal(t, KindInt, av.Kind)

	bv, ok := v.Field("b")
	require.True(t, ok)
	assert.Equal(t, KindFloat, bv.Kind)
}

func TestFromJSON_RoundTrip(t *testing.T) {
	src := []byte(`{"a":1,"b":"x","c":[1,2,3],"d":null,"e":true}`)
	v, err := FromJSON(src)
	require.NoError(t, err)

	out, err := v.MarshalJSON()
	require.NoError(t, err)

	v2, err := FromJSON(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, v2))
}

func TestPath_Get(t *testing.T) {
	v, err := FromJSON([]byte(`{"weather":[{"description":"rain"},{"description":"wind"}],"m":{"t":15.5}}`))
	require.NoError(t, err)

	got, ok := Get(v, Path("weather[*].description"))
	require.True(t, ok)
	s, _ := got.AsString()
	assert.Equal(t, "rain", s, "Get descends to the first array element")

	got2, ok := Get(v, Path("m.t"))
	require.True(t, ok)
	f, _ := got2.AsFloat()
	assert.Equal(t, 15.5, f)

	_, ok = Get(v, Path("missing.path"))
	assert.False(t, ok)
}

func TestPath_GetAll(t *testing.T) {
	v, err := FromJSON([]byte(`{"items":[{"d":"a"},{"d":"b"},{"d":"c"}]}`))
	require.NoError(t, err)

	all := GetAll(v, Path("items[*].d"))
	require.Len(t, all, 3)
	s0, _ := all[0].AsString()
	s2, _ := all[2].AsString()
	assert.Equal(t, "a", s0)
	assert.Equal(t, "c", s2)
}
