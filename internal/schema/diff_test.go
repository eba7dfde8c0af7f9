package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/exampleforge/exampleforge/internal/value"
)

func TestCompare_DetectsAddedRemovedAndTypeChanged(t *testing.T) {
	a := InferSchema([]value.Value{mustJSON(t, `{"id": 1, "old_name": "x"}`)})
	b := InferSchema([]value.Value{mustJSON(t, `{"id": "1", "new_field": true}`)})

	diffs := Compare(a, b)

	want := []Difference{
		{Path: "id", Kind: DiffTypeChanged, Detail: "integer -> string"},
		{Path: "new_field", Kind: DiffAdded},
		{Path: "old_name", Kind: DiffRemoved},
	}

	if diff := cmp.Diff(want, diffs, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_RenamesPairAddedAndRemovedOnSampleSimilarity(t *testing.T) {
	a := InferSchema([]value.Value{
		mustJSON(t, `{"full_name": "alice"}`),
		mustJSON(t, `{"full_name": "bob"}`),
	})
	b := InferSchema([]value.Value{
		mustJSON(t, `{"name": "alice"}`),
		mustJSON(t, `{"name": "bob"}`),
	})

	diffs := Compare(a, b)
	require.Len(t, diffs, 1)

	want := Difference{Path: "name", Kind: DiffRenamedFrom, From: "full_name"}
	if diff := cmp.Diff(want, diffs[0]); diff != "" {
		t.Errorf("rename detection mismatch (-want +got):\n%s", diff)
	}
}
