package schema

import (
	"sort"

	"github.com/exampleforge/exampleforge/internal/value"
)

// DiffKind enumerates the Schema Difference variants from spec §3.
type DiffKind string

const (
	DiffAdded            DiffKind = "added"
	DiffRemoved          DiffKind = "removed"
	DiffRenamedFrom      DiffKind = "renamed_from"
	DiffTypeChanged      DiffKind = "type_changed"
	DiffStructureChanged DiffKind = "structure_changed"
)

// Difference is one Schema Difference record.
type Difference struct {
	Path   value.Path
	Kind   DiffKind
	Detail string
	// From carries the counterpart path for renamed_from differences.
	From value.Path
}

// RenameBonus is the tunable Jaccard-hint confidence bonus applied by the
// Example Parser to FIELD_RENAME detections that coincide with a detected
// rename here (spec §9 Open Question: exposed as a tunable, not a constant).
const RenameBonus = 0.05

const renameJaccardThreshold = 0.5

// Compare aligns schema a (typically input) against schema b (typically
// output) by path, producing added/removed/type_changed/structure_changed
// differences, then re-labels matched added/removed pairs of the same leaf
// type as renamed_from when their sample-value Jaccard similarity is at
// least 0.5 (spec §4.2).
func Compare(a, b *Schema) []Difference {
	aIdx := indexByPath(a)
	bIdx := indexByPath(b)

	var added, removed []Field
	var diffs []Difference

	for p, af := range aIdx {
		bf, ok := bIdx[p]
		if !ok {
			removed = append(removed, af)
			continue
		}
		if af.FieldType != bf.FieldType {
			diffs = append(diffs, Difference{Path: p, Kind: DiffTypeChanged, Detail: string(af.FieldType) + " -> " + string(bf.FieldType)})
		} else if structureDiffers(af, bf) {
			diffs = append(diffs, Difference{Path: p, Kind: DiffStructureChanged})
		}
	}
	for p, bf := range bIdx {
		if _, ok := aIdx[p]; !ok {
			added = append(added, bf)
		}
	}

	renamed, addedLeft, removedLeft := detectRenames(added, removed)
	diffs = append(diffs, renamed...)

	for _, f := range addedLeft {
		diffs = append(diffs, Difference{Path: f.Path, Kind: DiffAdded})
	}
	for _, f := range removedLeft {
		diffs = append(diffs, Difference{Path: f.Path, Kind: DiffRemoved})
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Path < diffs[j].Path })
	return diffs
}

func indexByPath(s *Schema) map[value.Path]Field {
	m := make(map[value.Path]Field, len(s.Fields))
	for _, f := range s.Fields {
		m[f.Path] = f
	}
	return m
}

func structureDiffers(a, b Field) bool {
	if (a.NestedSchema == nil) != (b.NestedSchema == nil) {
		return true
	}
	if a.NestedSchema == nil {
		return false
	}
	return len(a.NestedSchema.Fields) != len(b.NestedSchema.Fields)
}

// detectRenames pairs each removed field with each added field of the same
// leaf type, scores the pair by Jaccard similarity of their sample-value
// multisets, and accepts the best-scoring pair above threshold. Ties break
// on the smaller path-edit-distance, then on insertion order (spec §4.2).
func detectRenames(added, removed []Field) (renames []Difference, addedLeft, removedLeft []Field) {
	usedAdded := make(map[int]bool)
	usedRemoved := make(map[int]bool)

	type candidate struct {
		ai, ri int
		score  float64
		dist   int
	}
	var candidates []candidate

	for ai, af := range added {
		for ri, rf := range removed {
			if af.FieldType != rf.FieldType {
				continue
			}
			score := jaccard(af.SampleValues, rf.SampleValues)
			if score < renameJaccardThreshold {
				continue
			}
			candidates = append(candidates, candidate{
				ai: ai, ri: ri, score: score,
				dist: editDistance(string(rf.Path), string(af.Path)),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].dist < candidates[j].dist
	})

	for _, c := range candidates {
		if usedAdded[c.ai] || usedRemoved[c.ri] {
			continue
		}
		usedAdded[c.ai] = true
		usedRemoved[c.ri] = true
		renames = append(renames, Difference{
			Path: added[c.ai].Path,
			Kind: DiffRenamedFrom,
			From: removed[c.ri].Path,
		})
	}

	for i, f := range added {
		if !usedAdded[i] {
			addedLeft = append(addedLeft, f)
		}
	}
	for i, f := range removed {
		if !usedRemoved[i] {
			removedLeft = append(removedLeft, f)
		}
	}
	return renames, addedLeft, removedLeft
}

// jaccard computes |intersection| / |union| over the multisets of sample
// values rendered to their JSON text (a cheap, type-respecting equality key
// that avoids a dependency on value.Value being comparable/hashable
// directly).
func jaccard(a, b []value.Value) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	countA := toCounts(a)
	countB := toCounts(b)

	intersection, union := 0, 0
	for k, ca := range countA {
		cb := countB[k]
		if ca < cb {
			intersection += ca
			union += cb
		} else {
			intersection += cb
			union += ca
		}
	}
	for k, cb := range countB {
		if _, ok := countA[k]; !ok {
			union += cb
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toCounts(vs []value.Value) map[string]int {
	m := make(map[string]int, len(vs))
	for _, v := range vs {
		b, err := v.MarshalJSON()
		if err != nil {
			continue
		}
		m[string(b)]++
	}
	return m
}

// editDistance computes plain Levenshtein distance, used only as a
// tie-breaker between equally-scored rename candidates.
func editDistance(a, b string) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
