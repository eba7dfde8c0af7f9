package examples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/value"
)

func pair(t *testing.T, in, out string) config.ExamplePair {
	t.Helper()
	iv, err := value.FromJSON([]byte(in))
	require.NoError(t, err)
	ov, err := value.FromJSON([]byte(out))
	require.NoError(t, err)
	return config.ExamplePair{Input: iv, Output: ov}
}

func patternFor(pe *ParsedExamples, target value.Path) (Pattern, bool) {
	for _, p := range pe.Patterns {
		if p.TargetPath == target {
			return p, true
		}
	}
	return Pattern{}, false
}

func TestPickBestAndCheckTies_NoHits(t *testing.T) {
	best, tied := pickBestAndCheckTies(nil)
	assert.Nil(t, best)
	assert.False(t, tied)
}

func TestPickBestAndCheckTies_KeepsCascadePriorityOrder(t *testing.T) {
	hits := []Pattern{
		{Kind: KindFieldMapping, Confidence: 0.6},
		{Kind: KindFieldRename, Confidence: 1.0},
	}
	best, tied := pickBestAndCheckTies(hits)
	require.NotNil(t, best)
	assert.Equal(t, KindFieldMapping, best.Kind, "the earlier-priority hit wins even though a later one scores higher")
	assert.False(t, tied)
}

func TestPickBestAndCheckTies_DetectsTieFromLaterHitNotJustTheNextOne(t *testing.T) {
	// The winner's immediate successor (FIELD_RENAME) does NOT tie; a hit
	// three detectors further down the cascade (DEFAULT_VALUE) does. A scan
	// that stops after checking only the first successor would miss this.
	hits := []Pattern{
		{Kind: KindFieldMapping, Confidence: 0.5},
		{Kind: KindFieldRename, Confidence: 1.0},
		{Kind: KindFieldExtraction, Confidence: 0.7},
		{Kind: KindDefaultValue, Confidence: 0.5},
	}
	best, tied := pickBestAndCheckTies(hits)
	require.NotNil(t, best)
	assert.Equal(t, KindFieldMapping, best.Kind)
	assert.True(t, tied, "DEFAULT_VALUE's 0.5 ties the winner's 0.5 even though it isn't the immediate successor")
}

func TestParse_FieldRenameAndTypeWidening(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"first_name": "Alice", "count": 1}`, `{"given_name": "Alice", "count": 1}`),
		pair(t, `{"first_name": "Bob", "count": 2.5}`, `{"given_name": "Bob", "count": 2.5}`),
		pair(t, `{"first_name": "Cat", "count": 3}`, `{"given_name": "Cat", "count": 3}`),
	}
	pe := Parse(pairs, DefaultParserConfig())

	p, ok := patternFor(pe, "given_name")
	require.True(t, ok)
	assert.Equal(t, KindFieldRename, p.Kind)
	assert.Equal(t, value.Path("first_name"), p.SourcePath)
	assert.GreaterOrEqual(t, p.Confidence, ConfidenceFloor)

	countField, ok := pe.OutputSchema.FieldByPath("count")
	require.True(t, ok)
	assert.Equal(t, "float", string(countField.FieldType))
}

func TestParse_NestedExtractionAndArrayFirst(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"weather":[{"description":"rain"}],"loc":{"city":"Austin"}}`, `{"summary":"rain","city":"Austin"}`),
		pair(t, `{"weather":[{"description":"sun"}],"loc":{"city":"Boise"}}`, `{"summary":"sun","city":"Boise"}`),
		pair(t, `{"weather":[{"description":"fog"}],"loc":{"city":"Reno"}}`, `{"summary":"fog","city":"Reno"}`),
	}
	pe := Parse(pairs, DefaultParserConfig())

	summary, ok := patternFor(pe, "summary")
	require.True(t, ok)
	assert.Equal(t, KindArrayFirst, summary.Kind)
	assert.Equal(t, value.Path("weather[*].description"), summary.SourcePath)

	city, ok := patternFor(pe, "city")
	require.True(t, ok)
	assert.Equal(t, KindFieldExtraction, city.Kind)
	assert.Equal(t, value.Path("loc.city"), city.SourcePath)
}

func TestParse_BooleanAndValueMapping(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"active":"yes","tier":"gold"}`, `{"is_active":true,"tier_level":1}`),
		pair(t, `{"active":"no","tier":"silver"}`, `{"is_active":false,"tier_level":2}`),
		pair(t, `{"active":"yes","tier":"bronze"}`, `{"is_active":true,"tier_level":3}`),
		pair(t, `{"active":"no","tier":"gold"}`, `{"is_active":false,"tier_level":1}`),
	}
	pe := Parse(pairs, DefaultParserConfig())

	active, ok := patternFor(pe, "is_active")
	require.True(t, ok)
	assert.Equal(t, KindBooleanConversion, active.Kind)

	tier, ok := patternFor(pe, "tier_level")
	require.True(t, ok)
	assert.Equal(t, KindValueMapping, tier.Kind)
}

func TestParse_ConcatenationDelimiterInference(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"first":"Alice","last":"Nguyen"}`, `{"full_name":"Alice Nguyen"}`),
		pair(t, `{"first":"Bob","last":"Singh"}`, `{"full_name":"Bob Singh"}`),
		pair(t, `{"first":"Cho","last":"Park"}`, `{"full_name":"Cho Park"}`),
	}
	pe := Parse(pairs, DefaultParserConfig())

	full, ok := patternFor(pe, "full_name")
	require.True(t, ok)
	assert.Equal(t, KindConcatenation, full.Kind)
	assert.ElementsMatch(t, []value.Path{"first", "last"}, full.SourcePaths)
	assert.Equal(t, `delimiter=" "`, full.TransformationNote)
}

func TestParse_SchemaMismatchDetected(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"x":1}`, `{"x":"1","y":true}`),
	}
	pe := Parse(pairs, DefaultParserConfig())
	require.NotEmpty(t, pe.SchemaDifferences)

	var sawTypeChanged, sawAdded bool
	for _, d := range pe.SchemaDifferences {
		switch d.Kind {
		case "type_changed":
			sawTypeChanged = true
		case "added":
			sawAdded = true
		}
	}
	assert.True(t, sawTypeChanged)
	assert.True(t, sawAdded)
}

func TestParse_ConfidenceWithinBounds(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"a":1}`, `{"b":"unrelated-literal"}`),
		pair(t, `{"a":2}`, `{"b":"another-literal"}`),
	}
	pe := Parse(pairs, DefaultParserConfig())
	for _, p := range pe.Patterns {
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestParse_Idempotent(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"first_name":"Alice"}`, `{"given_name":"Alice"}`),
		pair(t, `{"first_name":"Bob"}`, `{"given_name":"Bob"}`),
		pair(t, `{"first_name":"Cat"}`, `{"given_name":"Cat"}`),
	}
	pe1 := Parse(pairs, DefaultParserConfig())
	pe2 := Parse(pairs, DefaultParserConfig())
	require.Equal(t, len(pe1.Patterns), len(pe2.Patterns))
	for i := range pe1.Patterns {
		assert.Equal(t, pe1.Patterns[i].Kind, pe2.Patterns[i].Kind)
		assert.Equal(t, pe1.Patterns[i].TargetPath, pe2.Patterns[i].TargetPath)
		assert.InDelta(t, pe1.Patterns[i].Confidence, pe2.Patterns[i].Confidence, 1e-9)
	}
}

func TestParse_LowExampleCountWarning(t *testing.T) {
	pairs := []config.ExamplePair{
		pair(t, `{"a":1}`, `{"b":1}`),
	}
	pe := Parse(pairs, DefaultParserConfig())
	var found bool
	for _, w := range pe.Warnings {
		if w.Code == WarnLowExampleCount {
			found = true
		}
	}
	assert.True(t, found)
}
