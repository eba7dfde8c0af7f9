package examples

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/exampleforge/exampleforge/internal/schema"
	"github.com/exampleforge/exampleforge/internal/value"
)

var concatDelimiters = []string{"", " ", ", ", "-", "/"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"02-Jan-2006",
	"2006-01-02T15:04:05",
}

var boolTrueWords = map[string]bool{"yes": true, "true": true, "1": true, "y": true}
var boolFalseWords = map[string]bool{"no": true, "false": true, "0": true, "n": true}

// inputLeafPaths returns every input schema path whose field type is not a
// container (object/array); these are the candidate source paths every
// detector searches over.
func inputLeafPaths(s *schema.Schema) []value.Path {
	var out []value.Path
	for _, f := range s.Fields {
		if f.FieldType == schema.TypeObject || f.FieldType == schema.TypeArray {
			continue
		}
		out = append(out, f.Path)
	}
	return out
}

func pathDepth(p value.Path) (segments int, hasArray bool) {
	segs := p.Segments()
	for _, s := range segs {
		if strings.Contains(s, "[*]") {
			hasArray = true
		}
	}
	return len(segs), hasArray
}

// evalAt resolves a source path against the Nth example's input.
func evalAt(ctx detectContext, i int, p value.Path) (value.Value, bool) {
	return value.Get(ctx.pairs[i].Input, p)
}

func outAt(ctx detectContext, i int, t value.Path) (value.Value, bool) {
	return value.Get(ctx.pairs[i].Output, t)
}

// matchAll scores a candidate source path against a target by applying
// transform to the resolved source value and comparing it for equality
// against the resolved target value, once per example. It returns the
// confidence (matches / total) and the evidence witnesses.
func matchAll(ctx detectContext, source, target value.Path, transform func(value.Value) (value.Value, bool)) (float64, []Evidence) {
	total := len(ctx.pairs)
	if total == 0 {
		return 0, nil
	}
	matches := 0
	var evidence []Evidence
	for i := range ctx.pairs {
		sv, ok := evalAt(ctx, i, source)
		if !ok {
			continue
		}
		tv, ok := outAt(ctx, i, target)
		if !ok {
			continue
		}
		transformed, ok := transform(sv)
		if !ok {
			continue
		}
		if value.Equal(transformed, tv) {
			matches++
			evidence = append(evidence, Evidence{Input: sv, Output: tv})
		}
	}
	return float64(matches) / float64(total), evidence
}

func identity(v value.Value) (value.Value, bool) { return v, true }

// ---------------------------------------------------------------- CONSTANT

func detectConstant(ctx detectContext, target value.Path) (Pattern, bool) {
	if len(ctx.pairs) == 0 {
		return Pattern{}, false
	}
	first, ok := outAt(ctx, 0, target)
	if !ok {
		return Pattern{}, false
	}
	for i := 1; i < len(ctx.pairs); i++ {
		v, ok := outAt(ctx, i, target)
		if !ok || !value.Equal(v, first) {
			return Pattern{}, false
		}
	}

	for _, s := range inputLeafPaths(ctx.inSchema) {
		for i := range ctx.pairs {
			sv, ok := evalAt(ctx, i, s)
			if ok && value.Equal(sv, first) {
				return Pattern{}, false
			}
		}
	}

	var evidence []Evidence
	for i := range ctx.pairs {
		v, _ := outAt(ctx, i, target)
		evidence = append(evidence, Evidence{Output: v})
	}

	return Pattern{
		Kind:       KindConstant,
		TargetPath: target,
		Confidence: 1.0,
		Evidence:   evidence,
	}, true
}

// ----------------------------------------------------------- FIELD_MAPPING

func detectFieldMapping(ctx detectContext, target value.Path) (Pattern, bool) {
	return bestExactMatch(ctx, target, func(s value.Path) bool {
		depth, arr := pathDepth(s)
		return depth == 1 && !arr && s == target
	}, KindFieldMapping)
}

// ------------------------------------------------------------ FIELD_RENAME

func detectFieldRename(ctx detectContext, target value.Path) (Pattern, bool) {
	pat, ok := bestExactMatch(ctx, target, func(s value.Path) bool {
		depth, arr := pathDepth(s)
		return depth == 1 && !arr && s != target
	}, KindFieldRename)
	if !ok {
		return pat, false
	}
	if from, renamed := ctx.renamedTo[target]; renamed && from == pat.SourcePath {
		pat.Confidence = math.Min(1.0, pat.Confidence+ctx.cfg.RenameBonus)
		pat.TransformationNote = "schema analyzer rename hint confirmed"
	}
	return pat, true
}

// -------------------------------------------------- NESTED_ACCESS / EXTRACT

func detectNestedAccess(ctx detectContext, target value.Path) (Pattern, bool) {
	return bestExactMatch(ctx, target, func(s value.Path) bool {
		depth, arr := pathDepth(s)
		return depth > 1 && !arr
	}, KindFieldExtraction)
}

// -------------------------------------------------------------- ARRAY_FIRST

func detectArrayFirst(ctx detectContext, target value.Path) (Pattern, bool) {
	return bestExactMatch(ctx, target, func(s value.Path) bool {
		_, arr := pathDepth(s)
		return arr
	}, KindArrayFirst)
}

func bestExactMatch(ctx detectContext, target value.Path, eligible func(value.Path) bool, kind Kind) (Pattern, bool) {
	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		if !eligible(s) {
			continue
		}
		conf, evidence := matchAll(ctx, s, target, identity)
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence || (conf == best.Confidence && s < best.SourcePath) {
			best = &Pattern{
				Kind:       kind,
				SourcePath: s,
				TargetPath: target,
				Confidence: conf,
				Evidence:   evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

// ------------------------------------------------------------ TYPE_CONVERSION

func detectTypeConversion(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok {
		return Pattern{}, false
	}

	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		conf, evidence := matchAll(ctx, s, target, func(v value.Value) (value.Value, bool) { return cast(v, tf.FieldType) })
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence {
			sf, _ := ctx.inSchema.FieldByPath(s)
			best = &Pattern{
				Kind:       KindTypeConversion,
				SourcePath: s,
				TargetPath: target,
				SourceType: sf.FieldType,
				TargetType: tf.FieldType,
				Confidence: conf,
				Evidence:   evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

func cast(v value.Value, target schema.FieldType) (value.Value, bool) {
	switch target {
	case schema.TypeFloat:
		switch v.Kind {
		case value.KindInt:
			i, _ := v.AsInt()
			return value.Float(float64(i)), true
		case value.KindString:
			s, _ := v.AsString()
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return value.Value{}, false
			}
			return value.Float(f), true
		}
	case schema.TypeInteger:
		switch v.Kind {
		case value.KindFloat:
			f, _ := v.AsFloat()
			if f == math.Trunc(f) {
				return value.Int(int64(f)), true
			}
		case value.KindString:
			s, _ := v.AsString()
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return value.Value{}, false
			}
			return value.Int(i), true
		}
	case schema.TypeString:
		switch v.Kind {
		case value.KindInt:
			i, _ := v.AsInt()
			return value.String(strconv.FormatInt(i, 10)), true
		case value.KindFloat:
			f, _ := v.AsFloat()
			return value.String(strconv.FormatFloat(f, 'g', -1, 64)), true
		}
	case schema.TypeDate, schema.TypeDateTime:
		if v.Kind == value.KindString {
			s, _ := v.AsString()
			if t, ok := parseKnownDate(s); ok {
				if target == schema.TypeDate {
					return value.Date(t), true
				}
				return value.DateTime(t), true
			}
		}
	}
	return value.Value{}, false
}

func parseKnownDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ------------------------------------------------------- BOOLEAN_CONVERSION

func detectBooleanConversion(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok || tf.FieldType != schema.TypeBoolean {
		return Pattern{}, false
	}

	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		conf, evidence := matchAll(ctx, s, target, boolFromWord)
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence {
			best = &Pattern{
				Kind:       KindBooleanConversion,
				SourcePath: s,
				TargetPath: target,
				Confidence: conf,
				Evidence:   evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

func boolFromWord(v value.Value) (value.Value, bool) {
	var word string
	switch v.Kind {
	case value.KindString:
		word, _ = v.AsString()
	case value.KindInt:
		i, _ := v.AsInt()
		word = strconv.FormatInt(i, 10)
	default:
		return value.Value{}, false
	}
	lower := strings.ToLower(word)
	if boolTrueWords[lower] {
		return value.Bool(true), true
	}
	if boolFalseWords[lower] {
		return value.Bool(false), true
	}
	return value.Value{}, false
}

// ------------------------------------------------------------ VALUE_MAPPING

func detectValueMapping(ctx detectContext, target value.Path) (Pattern, bool) {
	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		mapping := map[string]value.Value{}
		distinctInputs := map[string]bool{}
		consistent := true
		var evidence []Evidence
		matches := 0
		total := 0

		for i := range ctx.pairs {
			sv, ok := evalAt(ctx, i, s)
			if !ok {
				continue
			}
			tv, ok := outAt(ctx, i, target)
			if !ok {
				continue
			}
			total++
			key, err := sv.MarshalJSON()
			if err != nil {
				continue
			}
			distinctInputs[string(key)] = true
			if existing, seen := mapping[string(key)]; seen {
				if !value.Equal(existing, tv) {
					consistent = false
					break
				}
			} else {
				mapping[string(key)] = tv
				matches++
				evidence = append(evidence, Evidence{Input: sv, Output: tv})
			}
		}
		// Require at least one repeated input value: without repetition, a
		// "mapping" is just a per-row bijection indistinguishable from any
		// other function and would otherwise outrank every later detector
		// (CONCATENATION, MATH_OPERATION, ...) by construction.
		if !consistent || len(distinctInputs) == 0 || len(distinctInputs) == total {
			continue
		}
		if isTrivialIdentityMap(mapping) {
			continue
		}
		conf := float64(matches) / float64(len(distinctInputs))
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence {
			best = &Pattern{
				Kind:       KindValueMapping,
				SourcePath: s,
				TargetPath: target,
				Confidence: conf,
				Evidence:   evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

// isTrivialIdentityMap rejects value-mapping candidates whose table is just
// the identity function, so FIELD_MAPPING (higher in the priority order)
// keeps precedence over a VALUE_MAPPING that says nothing new.
func isTrivialIdentityMap(mapping map[string]value.Value) bool {
	for k, v := range mapping {
		b, err := v.MarshalJSON()
		if err != nil || string(b) != k {
			return false
		}
	}
	return true
}

// ------------------------------------------------------------ CONCATENATION

func detectConcatenation(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok || tf.FieldType != schema.TypeString {
		return Pattern{}, false
	}

	stringPaths := []value.Path{}
	for _, f := range ctx.inSchema.Fields {
		if f.FieldType == schema.TypeString {
			stringPaths = append(stringPaths, f.Path)
		}
	}

	var best *Pattern
	for i := 0; i < len(stringPaths); i++ {
		for j := 0; j < len(stringPaths); j++ {
			if i == j {
				continue
			}
			for _, delim := range concatDelimiters {
				a, b := stringPaths[i], stringPaths[j]
				conf, evidence := matchConcat(ctx, a, b, delim, target)
				if conf < ConfidenceFloor {
					continue
				}
				if best == nil || conf > best.Confidence {
					best = &Pattern{
						Kind:               KindConcatenation,
						SourcePaths:        []value.Path{a, b},
						TargetPath:         target,
						Confidence:         conf,
						Evidence:           evidence,
						TransformationNote: fmt.Sprintf("delimiter=%q", delim),
					}
				}
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

func matchConcat(ctx detectContext, a, b value.Path, delim string, target value.Path) (float64, []Evidence) {
	total := len(ctx.pairs)
	if total == 0 {
		return 0, nil
	}
	matches := 0
	var evidence []Evidence
	for i := range ctx.pairs {
		av, ok := evalAt(ctx, i, a)
		if !ok {
			continue
		}
		bv, ok := evalAt(ctx, i, b)
		if !ok {
			continue
		}
		tv, ok := outAt(ctx, i, target)
		if !ok {
			continue
		}
		as, _ := av.AsString()
		bs, _ := bv.AsString()
		combined := as + delim + bs
		ts, ok := tv.AsString()
		if ok && combined == ts {
			matches++
			evidence = append(evidence, Evidence{Output: tv})
		}
	}
	return float64(matches) / float64(total), evidence
}

// -------------------------------------------------------------- DATE_PARSING

func detectDateParsing(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok || (tf.FieldType != schema.TypeDate && tf.FieldType != schema.TypeDateTime) {
		return Pattern{}, false
	}

	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		conf, evidence := matchAll(ctx, s, target, func(v value.Value) (value.Value, bool) {
			return cast(v, tf.FieldType)
		})
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence {
			best = &Pattern{
				Kind:       KindDateParsing,
				SourcePath: s,
				TargetPath: target,
				TargetType: tf.FieldType,
				Confidence: conf,
				Evidence:   evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

// ----------------------------------------------------------- MATH_OPERATION

// detectMathOperation is restricted to linear one-or-two-variable forms per
// the spec §9 Open Question decision: identity, scale-by-constant, sum,
// difference, and product of exactly two numeric source fields, solved by
// direct substitution across the example set rather than a general solver.
func detectMathOperation(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok || (tf.FieldType != schema.TypeFloat && tf.FieldType != schema.TypeInteger) {
		return Pattern{}, false
	}
	if len(ctx.pairs) < 2 {
		return Pattern{}, false
	}

	numericPaths := []value.Path{}
	for _, f := range ctx.inSchema.Fields {
		if f.FieldType == schema.TypeFloat || f.FieldType == schema.TypeInteger {
			numericPaths = append(numericPaths, f.Path)
		}
	}

	var best *Pattern
	for _, s := range numericPaths {
		if conf, scale, evidence, ok := solveScale(ctx, s, target); ok && conf >= ConfidenceFloor {
			if best == nil || conf > best.Confidence {
				best = &Pattern{
					Kind: KindMathOperation, SourcePath: s, TargetPath: target,
					Confidence: conf, Evidence: evidence,
					TransformationNote: fmt.Sprintf("scale by %g", scale),
				}
			}
		}
	}
	for i := 0; i < len(numericPaths); i++ {
		for j := i + 1; j < len(numericPaths); j++ {
			for _, op := range []string{"sum", "difference", "product"} {
				conf, evidence, ok := solveBinary(ctx, numericPaths[i], numericPaths[j], target, op)
				if !ok || conf < ConfidenceFloor {
					continue
				}
				if best == nil || conf > best.Confidence {
					best = &Pattern{
						Kind: KindMathOperation, SourcePaths: []value.Path{numericPaths[i], numericPaths[j]},
						TargetPath: target, Confidence: conf, Evidence: evidence,
						TransformationNote: op,
					}
				}
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

func solveScale(ctx detectContext, s, target value.Path) (confidence, scale float64, evidence []Evidence, ok bool) {
	sv0, ok1 := evalAt(ctx, 0, s)
	tv0, ok2 := outAt(ctx, 0, target)
	if !ok1 || !ok2 {
		return 0, 0, nil, false
	}
	sf0, ok1 := sv0.AsFloat()
	tf0, ok2 := tv0.AsFloat()
	if !ok1 || !ok2 || sf0 == 0 {
		return 0, 0, nil, false
	}
	scale = tf0 / sf0

	matches := 0
	for i := range ctx.pairs {
		sv, ok1 := evalAt(ctx, i, s)
		tv, ok2 := outAt(ctx, i, target)
		if !ok1 || !ok2 {
			continue
		}
		sf, _ := sv.AsFloat()
		tf, _ := tv.AsFloat()
		if math.Abs(sf*scale-tf) < 1e-9 {
			matches++
			evidence = append(evidence, Evidence{Input: sv, Output: tv})
		}
	}
	return float64(matches) / float64(len(ctx.pairs)), scale, evidence, true
}

func solveBinary(ctx detectContext, a, b, target value.Path, op string) (float64, []Evidence, bool) {
	matches := 0
	var evidence []Evidence
	for i := range ctx.pairs {
		av, ok1 := evalAt(ctx, i, a)
		bv, ok2 := evalAt(ctx, i, b)
		tv, ok3 := outAt(ctx, i, target)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		af, _ := av.AsFloat()
		bf, _ := bv.AsFloat()
		tf, _ := tv.AsFloat()
		var computed float64
		switch op {
		case "sum":
			computed = af + bf
		case "difference":
			computed = af - bf
		case "product":
			computed = af * bf
		}
		if math.Abs(computed-tf) < 1e-9 {
			matches++
			evidence = append(evidence, Evidence{Output: tv})
		}
	}
	return float64(matches) / float64(len(ctx.pairs)), evidence, true
}

// --------------------------------------------------------- STRING_FORMATTING

var stringTransforms = map[string]func(string) string{
	"trim":      strings.TrimSpace,
	"lowercase": strings.ToLower,
	"uppercase": strings.ToUpper,
	"titlecase": strings.Title,
	"currency_strip": func(s string) string {
		return strings.NewReplacer("$", "", "€", "", "£", "").Replace(s)
	},
	"percent_strip": func(s string) string { return strings.ReplaceAll(s, "%", "") },
}

func detectStringFormatting(ctx detectContext, target value.Path) (Pattern, bool) {
	tf, ok := ctx.outSchema.FieldByPath(target)
	if !ok || tf.FieldType != schema.TypeString {
		return Pattern{}, false
	}

	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		for name, transform := range stringTransforms {
			conf, evidence := matchAll(ctx, s, target, func(v value.Value) (value.Value, bool) {
				str, ok := v.AsString()
				if !ok {
					return value.Value{}, false
				}
				return value.String(transform(str)), true
			})
			if conf < ConfidenceFloor {
				continue
			}
			if best == nil || conf > best.Confidence {
				best = &Pattern{
					Kind: KindStringFormatting, SourcePath: s, TargetPath: target,
					Confidence: conf, Evidence: evidence, TransformationNote: name,
				}
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

// ------------------------------------------------------------ DEFAULT_VALUE

func detectDefaultValue(ctx detectContext, target value.Path) (Pattern, bool) {
	var best *Pattern
	for _, s := range inputLeafPaths(ctx.inSchema) {
		var defaultVal *value.Value
		matches := 0
		var evidence []Evidence
		ok := true
		for i := range ctx.pairs {
			tv, tOk := outAt(ctx, i, target)
			if !tOk {
				ok = false
				break
			}
			sv, sOk := evalAt(ctx, i, s)
			if !sOk || sv.IsNull() {
				if defaultVal == nil {
					d := tv
					defaultVal = &d
				}
				if value.Equal(tv, *defaultVal) {
					matches++
					evidence = append(evidence, Evidence{Output: tv})
				}
			} else {
				if value.Equal(sv, tv) {
					matches++
					evidence = append(evidence, Evidence{Input: sv, Output: tv})
				}
			}
		}
		if !ok || defaultVal == nil {
			continue
		}
		conf := float64(matches) / float64(len(ctx.pairs))
		if conf < ConfidenceFloor {
			continue
		}
		if best == nil || conf > best.Confidence {
			best = &Pattern{
				Kind: KindDefaultValue, SourcePath: s, TargetPath: target,
				Confidence: conf, Evidence: evidence,
			}
		}
	}
	if best == nil {
		return Pattern{}, false
	}
	return *best, true
}

// -------------------------------------------------------------------- CUSTOM

// detectCustom is the fallback emitted when no detector clears the
// confidence floor; its confidence is derived from output-value entropy per
// spec §4.3: 0.3 + 0.1 * (frequency of the most-common observed value).
func detectCustom(ctx detectContext, target value.Path) Pattern {
	counts := map[string]int{}
	var evidence []Evidence
	total := 0
	for i := range ctx.pairs {
		tv, ok := outAt(ctx, i, target)
		if !ok {
			continue
		}
		total++
		b, err := tv.MarshalJSON()
		if err != nil {
			continue
		}
		counts[string(b)]++
		evidence = append(evidence, Evidence{Output: tv})
	}
	maxFreq := 0
	for _, c := range counts {
		if c > maxFreq {
			maxFreq = c
		}
	}
	freqRatio := 0.0
	if total > 0 {
		freqRatio = float64(maxFreq) / float64(total)
	}
	return Pattern{
		Kind:               KindCustom,
		TargetPath:         target,
		Confidence:         0.3 + 0.1*freqRatio,
		Evidence:           evidence,
		TransformationNote: "no detector reached the confidence floor; left for the coder to resolve",
	}
}
