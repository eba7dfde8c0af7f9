// Package examples derives the ranked set of transformation Patterns from a
// project's example input/output pairs, per spec §4.3. It is the most
// semantically dense component in the pipeline: a fourteen-kind priority
// cascade tries, for every output field, each candidate transformation in a
// fixed order and keeps the first that clears a confidence floor.
package examples

import (
	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/schema"
	"github.com/exampleforge/exampleforge/internal/value"
)

// Kind enumerates the Pattern variants from spec §3, in priority order.
type Kind string

const (
	KindConstant           Kind = "CONSTANT"
	KindFieldMapping       Kind = "FIELD_MAPPING"
	KindFieldRename        Kind = "FIELD_RENAME"
	KindFieldExtraction    Kind = "FIELD_EXTRACTION"
	KindArrayFirst         Kind = "ARRAY_FIRST"
	KindTypeConversion     Kind = "TYPE_CONVERSION"
	KindBooleanConversion  Kind = "BOOLEAN_CONVERSION"
	KindValueMapping       Kind = "VALUE_MAPPING"
	KindConcatenation      Kind = "CONCATENATION"
	KindDateParsing        Kind = "DATE_PARSING"
	KindMathOperation      Kind = "MATH_OPERATION"
	KindStringFormatting   Kind = "STRING_FORMATTING"
	KindDefaultValue       Kind = "DEFAULT_VALUE"
	KindCustom             Kind = "CUSTOM"
)

// Evidence is one (input, output) witness supporting a Pattern.
type Evidence struct {
	Input  value.Value
	Output value.Value
}

// Pattern is the extracted transformation unit (spec §3).
type Pattern struct {
	Kind               Kind
	SourcePath         value.Path
	SourcePaths        []value.Path
	TargetPath         value.Path
	SourceType         schema.FieldType
	TargetType         schema.FieldType
	Confidence         float64
	Evidence           []Evidence
	TransformationNote string
}

// ConfidenceFloor is the minimum confidence a detector's result must clear
// to be emitted in preference to trying the next priority kind (spec §4.3).
const ConfidenceFloor = 0.5

// WarningCode enumerates the warning kinds emitted into ParsedExamples.
type WarningCode string

const (
	WarnLowExampleCount       WarningCode = "LOW_EXAMPLE_COUNT"
	WarnConflictingPatterns   WarningCode = "CONFLICTING_PATTERNS"
	WarnUnreachableOutputField WarningCode = "UNREACHABLE_OUTPUT_FIELD"
)

// Warning is one non-fatal diagnostic surfaced alongside the pattern set.
type Warning struct {
	Code    WarningCode
	Detail  string
}

// ParsedExamples is the combined output of schema inference and pattern
// extraction (spec §3).
type ParsedExamples struct {
	InputSchema       *schema.Schema
	OutputSchema      *schema.Schema
	Patterns          []Pattern
	SchemaDifferences []schema.Difference
	NumExamples       int
	Warnings          []Warning
}

// HighConfidence returns patterns with confidence >= 0.9 (spec §3 bucketing).
func (p *ParsedExamples) HighConfidence() []Pattern { return p.bucket(0.9, 1.01) }

// MediumConfidence returns patterns with confidence in [0.7, 0.9).
func (p *ParsedExamples) MediumConfidence() []Pattern { return p.bucket(0.7, 0.9) }

// LowConfidence returns patterns with confidence < 0.7.
func (p *ParsedExamples) LowConfidence() []Pattern { return p.bucket(-1, 0.7) }

func (p *ParsedExamples) bucket(lo, hi float64) []Pattern {
	var out []Pattern
	for _, pat := range p.Patterns {
		if pat.Confidence >= lo && pat.Confidence < hi {
			out = append(out, pat)
		}
	}
	return out
}

// ParserConfig exposes tunables the spec leaves as open questions (§9).
type ParserConfig struct {
	// RenameBonus is added to FIELD_RENAME confidence when the Schema
	// Analyzer's own rename detection agrees, capped at 1.0.
	RenameBonus float64
}

// DefaultParserConfig returns the spec-documented default tunables.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{RenameBonus: schema.RenameBonus}
}

// Parse runs the full Example Parser pipeline from spec §4.3: schema
// inference and comparison, followed by per-output-field pattern detection
// in priority order.
func Parse(pairs []config.ExamplePair, cfg ParserConfig) *ParsedExamples {
	inputs := make([]value.Value, len(pairs))
	outputs := make([]value.Value, len(pairs))
	for i, p := range pairs {
		inputs[i] = p.Input
		outputs[i] = p.Output
	}

	inSchema := schema.InferSchema(inputs)
	outSchema := schema.InferSchema(outputs)
	diffs := schema.Compare(inSchema, outSchema)

	renamedTo := map[value.Path]value.Path{}
	for _, d := range diffs {
		if d.Kind == schema.DiffRenamedFrom {
			renamedTo[d.Path] = d.From
		}
	}

	pe := &ParsedExamples{
		InputSchema:       inSchema,
		OutputSchema:      outSchema,
		SchemaDifferences: diffs,
		NumExamples:       len(pairs),
	}

	if len(pairs) < 3 {
		pe.Warnings = append(pe.Warnings, Warning{Code: WarnLowExampleCount, Detail: "fewer than 3 examples"})
	}

	ctx := detectContext{
		pairs:     pairs,
		inSchema:  inSchema,
		outSchema: outSchema,
		renamedTo: renamedTo,
		cfg:       cfg,
	}

	for _, tf := range outSchema.Fields {
		if tf.FieldType == schema.TypeObject || tf.FieldType == schema.TypeArray {
			// Container fields are described by their descended leaf
			// paths; only leaves get their own pattern (spec §4.3 talks
			// about "output field paths", which the Schema Analyzer
			// already decomposes down to leaves).
			continue
		}
		pat, warn, ok := detectField(ctx, tf.Path)
		if ok {
			pe.Patterns = append(pe.Patterns, pat)
		}
		if warn != nil {
			pe.Warnings = append(pe.Warnings, *warn)
		}
	}

	return pe
}

type detectContext struct {
	pairs     []config.ExamplePair
	inSchema  *schema.Schema
	outSchema *schema.Schema
	renamedTo map[value.Path]value.Path
	cfg       ParserConfig
}

// detectField runs the fourteen-kind priority cascade for one output path.
// The winner is the first detector to clear ConfidenceFloor (spec §4.3's
// priority order), but CONFLICTING_PATTERNS must reflect the *entire*
// remaining cascade, not just the detector immediately behind the winner:
// a tie three detectors down the priority order is just as much a conflict
// as a tie one detector down.
func detectField(ctx detectContext, target value.Path) (Pattern, *Warning, bool) {
	detectors := []func(detectContext, value.Path) (Pattern, bool){
		detectConstant,
		detectFieldMapping,
		detectFieldRename,
		detectNestedAccess,
		detectArrayFirst,
		detectTypeConversion,
		detectBooleanConversion,
		detectValueMapping,
		detectConcatenation,
		detectDateParsing,
		detectMathOperation,
		detectStringFormatting,
		detectDefaultValue,
	}

	var hits []Pattern
	for _, d := range detectors {
		pat, ok := d(ctx, target)
		if !ok || pat.Confidence < ConfidenceFloor {
			continue
		}
		hits = append(hits, pat)
	}

	if best, tied := pickBestAndCheckTies(hits); best != nil {
		var warn *Warning
		if tied {
			warn = &Warning{Code: WarnConflictingPatterns, Detail: string(target)}
		}
		return *best, warn, true
	}

	pat := detectCustom(ctx, target)
	warn := &Warning{Code: WarnUnreachableOutputField, Detail: string(target)}
	return pat, warn, true
}

// pickBestAndCheckTies returns the highest-priority hit (hits is already in
// cascade priority order) and whether ANY other hit in the slice — not just
// the one immediately following it — ties its confidence.
func pickBestAndCheckTies(hits []Pattern) (*Pattern, bool) {
	if len(hits) == 0 {
		return nil, false
	}
	best := hits[0]
	tied := false
	for _, h := range hits[1:] {
		if h.Confidence == best.Confidence {
			tied = true
		}
	}
	return &best, tied
}
