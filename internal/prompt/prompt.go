// Package prompt renders deterministic Planner/Coder prompts from a
// Generation Context (spec §4.4). Sections are assembled in a fixed order
// and concatenated directly — no text/template — so that identical inputs
// always produce byte-identical prompts, which both the LLM Gateway's cache
// key and the regression battery depend on.
package prompt

import (
	"fmt"
	"strings"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/examples"
	"github.com/exampleforge/exampleforge/internal/schema"
)

// Mode selects which persona's prompt is being rendered.
type Mode string

const (
	ModePlanner Mode = "planner"
	ModeCoder   Mode = "coder"
)

// Section names a prompt section, in the fixed assembly order.
type Section string

const (
	SectionIdentity    Section = "identity"
	SectionProtocol    Section = "protocol"
	SectionSchema      Section = "schema"
	SectionPatterns    Section = "patterns"
	SectionConstraints Section = "constraints"
	SectionPlan        Section = "plan"
	SectionRepair      Section = "repair"
)

var assemblyOrder = []Section{
	SectionIdentity,
	SectionProtocol,
	SectionSchema,
	SectionPatterns,
	SectionConstraints,
	SectionPlan,
	SectionRepair,
}

// Budget caps the rendered size of a single section, measured in runes.
// A section over the cap is cut at that rune count and a "...(truncated)"
// marker is appended; whatever lies past the cut is dropped, whatever its
// confidence, and a cap shorter than the heading cuts the heading too.
type Budget struct {
	MaxRunesPerSection int
}

// DefaultBudget applies one 4000-rune cap to every section alike.
func DefaultBudget() Budget {
	return Budget{MaxRunesPerSection: 4000}
}

// Builder renders prompts for the Dual-Mode Agent.
type Builder struct {
	budget Budget
}

func NewBuilder(budget Budget) *Builder {
	return &Builder{budget: budget}
}

// PlannerInput bundles what the Planner prompt needs: the project spec and
// the Example Parser's output.
type PlannerInput struct {
	Project *config.ProjectSpec
	Parsed  *examples.ParsedExamples
}

// BuildPlanner renders the Planner prompt: inferred schemas (with the
// example count) and extracted patterns, asking for a Plan Spec (spec §4.4,
// §4.6). The example pairs themselves are not rendered into the prompt.
func (b *Builder) BuildPlanner(in PlannerInput) string {
	sections := map[Section]string{
		SectionIdentity: b.identity(ModePlanner, in.Project),
		SectionProtocol: plannerProtocol,
		SectionSchema:   b.schemaSection(in.Parsed),
		SectionPatterns: b.patternsSection(in.Parsed),
	}
	return b.assemble(sections)
}

// CoderInput bundles what the Coder prompt needs: the Plan Spec produced by
// the Planner and the validation rules it must satisfy.
type CoderInput struct {
	Project    *config.ProjectSpec
	PlanJSON   string
	Violations []string
}

// BuildCoder renders the Coder prompt: the plan, the constraint rules, and
// (on a repair pass) the prior violations to fix (spec §4.6, §4.7).
func (b *Builder) BuildCoder(in CoderInput) string {
	sections := map[Section]string{
		SectionIdentity:    b.identity(ModeCoder, in.Project),
		SectionProtocol:    coderProtocol,
		SectionPlan:        b.truncate(in.PlanJSON),
		SectionConstraints: b.constraintsSection(in.Project),
	}
	if len(in.Violations) > 0 {
		sections[SectionRepair] = b.repairSection(in.Violations)
	}
	return b.assemble(sections)
}

func (b *Builder) assemble(sections map[Section]string) string {
	var parts []string
	for _, s := range assemblyOrder {
		body, ok := sections[s]
		if !ok || body == "" {
			continue
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}

func (b *Builder) truncate(s string) string {
	r := []rune(s)
	if len(r) <= b.budget.MaxRunesPerSection {
		return s
	}
	return string(r[:b.budget.MaxRunesPerSection]) + "\n...(truncated)"
}

const plannerProtocol = `## Task

You are planning a data-extraction program. Given the input schema, output
schema, and the transformation patterns already detected between them,
produce a Plan Spec: one entry per output field naming the source field(s),
the transformation kind, and any parameters the Coder needs (a delimiter, a
value table, a date layout, a scale constant). Do not write code.

Respond with a single JSON object matching the Plan Spec shape. Resolve every
output field, including the ones marked low-confidence or CUSTOM — propose
your best transformation for those rather than omitting them.`

const coderProtocol = `## Task

You are writing a single-purpose Go data-extraction package from the Plan
Spec below. Implement exactly the fields the plan names, using the
transformation it specifies for each. The package must expose one function
accepting the universal input value and returning the universal output
value plus an error. Do not add fields, defaults, or behavior the plan does
not name.`

func (b *Builder) identity(mode Mode, project *config.ProjectSpec) string {
	name := "unnamed-project"
	if project != nil {
		name = project.Name
	}
	role := "Planner"
	if mode == ModeCoder {
		role = "Coder"
	}
	return fmt.Sprintf("## Identity\n\nYou are the %s for project %q.", role, name)
}

func (b *Builder) schemaSection(pe *examples.ParsedExamples) string {
	if pe == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Schemas\n\n")
	sb.WriteString(fmt.Sprintf("Observed over %d example(s).\n\n", pe.NumExamples))
	sb.WriteString("Input fields:\n")
	writeFieldLines(&sb, pe.InputSchema)
	sb.WriteString("\nOutput fields:\n")
	writeFieldLines(&sb, pe.OutputSchema)
	if len(pe.SchemaDifferences) > 0 {
		sb.WriteString("\nSchema differences:\n")
		for _, d := range pe.SchemaDifferences {
			sb.WriteString(fmt.Sprintf("- %s: %s", d.Path, d.Kind))
			if d.From != "" {
				sb.WriteString(fmt.Sprintf(" (from %s)", d.From))
			}
			sb.WriteString("\n")
		}
	}
	return b.truncate(sb.String())
}

func writeFieldLines(sb *strings.Builder, s *schema.Schema) {
	if s == nil {
		return
	}
	for _, f := range s.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		null := ""
		if f.Nullable {
			null = ", nullable"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s (%s%s)\n", f.Path, f.FieldType, req, null))
	}
}

func (b *Builder) patternsSection(pe *examples.ParsedExamples) string {
	if pe == nil || len(pe.Patterns) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Detected patterns\n\n")
	for _, p := range pe.Patterns {
		sb.WriteString(fmt.Sprintf("- %s -> %s [%s, confidence %.2f]", p.SourcePath, p.TargetPath, p.Kind, p.Confidence))
		if p.TransformationNote != "" {
			sb.WriteString(" — " + p.TransformationNote)
		}
		sb.WriteString("\n")
	}
	if len(pe.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range pe.Warnings {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", w.Code, w.Detail))
		}
	}
	return b.truncate(sb.String())
}

func (b *Builder) constraintsSection(project *config.ProjectSpec) string {
	if project == nil || project.Validation == nil {
		return ""
	}
	v := project.Validation
	var sb strings.Builder
	sb.WriteString("## Constraints\n\n")
	if v.MaxComplexity > 0 {
		sb.WriteString(fmt.Sprintf("- max cyclomatic complexity: %d\n", v.MaxComplexity))
	}
	if v.MaxMethodLines > 0 {
		sb.WriteString(fmt.Sprintf("- max function length: %d lines\n", v.MaxMethodLines))
	}
	if len(v.ForbiddenImports) > 0 {
		sb.WriteString("- forbidden imports: " + strings.Join(v.ForbiddenImports, ", ") + "\n")
	}
	if v.EnforceDocstrings {
		sb.WriteString("- every exported identifier needs a doc comment\n")
	}
	if v.EnforceInterface {
		sb.WriteString("- the extraction entry point must satisfy the documented interface\n")
	}
	if !v.AllowPrintStatements {
		sb.WriteString("- no fmt.Print*/println debugging output\n")
	}
	return b.truncate(sb.String())
}

func (b *Builder) repairSection(violations []string) string {
	var sb strings.Builder
	sb.WriteString("## Fix these violations\n\n")
	sb.WriteString("The previous attempt failed validation. Fix every item below without\n")
	sb.WriteString("introducing new ones:\n\n")
	for _, v := range violations {
		sb.WriteString("- " + v + "\n")
	}
	return b.truncate(sb.String())
}
