// Package agent implements the Dual-Mode Agent (spec §4.6): two LLM
// personas, Planner and Coder, sharing one Gateway. Planner turns a Parsed
// Examples object into a Plan Spec; Coder turns a Plan Spec into multi-file
// Generated Code. Both retry once on malformed output, following the
// JSON-first / code-block-fallback / raw-fallback parsing cascade the
// teacher's internal/shards/coder.go uses for its own LLM responses.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/examples"
	"github.com/exampleforge/exampleforge/internal/llm"
	"github.com/exampleforge/exampleforge/internal/prompt"
)

// PlanSpec is the Planner's structured JSON output (spec §4.3 GLOSSARY).
type PlanSpec struct {
	Strategy           string       `json:"strategy"`
	Modules            []PlanModule `json:"modules"`
	Imports            []string     `json:"imports"`
	ErrorHandlingNotes string       `json:"error_handling_notes"`
	TestOutline        string       `json:"test_outline"`
}

type PlanModule struct {
	Name    string      `json:"name"`
	Purpose string      `json:"purpose"`
	Classes []PlanClass `json:"classes"`
}

type PlanClass struct {
	Name    string   `json:"name"`
	Bases   []string `json:"bases"`
	Methods []string `json:"methods"`
	Fields  []string `json:"fields"`
}

// GeneratedCode is the Coder's multi-file output, keyed by the path named in
// each "=== path ===" section header.
type GeneratedCode map[string]string

// Usage carries the token/model accounting off of one Gateway call, so the
// Generator Orchestrator can fold it into its run-metadata side effect
// (spec §4.8's {model, tokens, duration_ms, validation_summary} record)
// without the Agent reaching into the orchestrator's persistence layer.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Add accumulates u2 into u, keeping the last non-empty Model seen (a run
// may call more than one persona against more than one underlying model).
func (u Usage) Add(u2 Usage) Usage {
	out := Usage{
		Model:            u.Model,
		PromptTokens:     u.PromptTokens + u2.PromptTokens,
		CompletionTokens: u.CompletionTokens + u2.CompletionTokens,
	}
	if u2.Model != "" {
		out.Model = u2.Model
	}
	return out
}

// fileHeaderRegex splits a Coder response into named file sections. The
// teacher's coder.go falls back through JSON, then fenced code blocks, then
// raw text; the Coder persona here is asked for a delimited multi-file
// format instead (spec §4.6), so the cascade's first rung becomes this
// header split, followed by the fenced-code-block and raw-text rungs.
var fileHeaderRegex = regexp.MustCompile(`(?m)^===\s*(\S+)\s*===\s*$`)

// ErrorKind classifies an AgentError for errors.Is-style branching, matching
// the ambient Kind-enum error style used across the codebase (§10.2).
type ErrorKind string

const (
	ErrKindInvalidJSON  ErrorKind = "INVALID_JSON"
	ErrKindParseFailure ErrorKind = "PARSE_FAILURE"
	ErrKindGateway      ErrorKind = "GATEWAY"
	ErrKindCancelled    ErrorKind = "CANCELLED"
)

// AgentError is the sum-typed failure mode of Plan/Code/PlanAndCode.
type AgentError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("agent: %s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Cause }

// Agent wires the Prompt Builder to the LLM Gateway for both personas.
type Agent struct {
	gateway *llm.Gateway
	builder *prompt.Builder
	log     *zap.Logger
}

func New(gateway *llm.Gateway, builder *prompt.Builder, log *zap.Logger) *Agent {
	return &Agent{gateway: gateway, builder: builder, log: log}
}

func lowTemp() *float64 {
	t := 0.2
	return &t
}

// Plan calls the Planner persona: parsed examples + project spec -> Plan
// Spec. It requests JSON mode at low temperature and validates the result
// against the Plan Spec shape, retrying once with an explicit repair note
// on failure (spec §4.6).
func (a *Agent) Plan(ctx context.Context, parsed *examples.ParsedExamples, spec *config.ProjectSpec) (*PlanSpec, Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, Usage{}, &AgentError{Kind: ErrKindCancelled, Message: "plan aborted before call", Cause: err}
	}

	userPrompt := a.builder.BuildPlanner(prompt.PlannerInput{Project: spec, Parsed: parsed})
	req := llm.Request{
		SystemPrompt: "Respond with a single JSON object. Do not include prose outside the object.",
		UserPrompt:   userPrompt,
		SchemaName:   "plan_spec",
		Schema:       llm.GenerateSchema[PlanSpec](),
		Temperature:  lowTemp(),
	}

	plan, usage, err := a.tryPlan(ctx, req)
	if err == nil {
		return plan, usage, nil
	}

	if ctx.Err() != nil {
		return nil, usage, &AgentError{Kind: ErrKindCancelled, Message: "plan cancelled during retry", Cause: ctx.Err()}
	}

	a.log.Warn("planner output rejected, retrying with repair hint", zap.Error(err))
	req.UserPrompt = userPrompt + "\n\n## Repair\n\nYour previous output was not valid JSON matching the Plan Spec " +
		"shape. Error: " + err.Error() + "\nPlease emit only a single valid JSON object, no prose."

	plan, usage2, err := a.tryPlan(ctx, req)
	usage = usage.Add(usage2)
	if err != nil {
		return nil, usage, &AgentError{Kind: ErrKindInvalidJSON, Message: "planner output invalid after repair retry", Cause: err}
	}
	return plan, usage, nil
}

func (a *Agent) tryPlan(ctx context.Context, req llm.Request) (*PlanSpec, Usage, error) {
	resp, err := a.gateway.Complete(ctx, req)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("gateway: %w", err)
	}
	usage := Usage{Model: resp.Model, PromptTokens: resp.PromptTokens, CompletionTokens: resp.CompletionTokens}
	text := resp.Text
	if extracted, err := llm.ExtractJSON(text); err == nil {
		text = extracted
	}
	var plan PlanSpec
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, usage, fmt.Errorf("unmarshal plan spec: %w", err)
	}
	if plan.Strategy == "" || len(plan.Modules) == 0 {
		return nil, usage, fmt.Errorf("plan spec missing strategy or modules")
	}
	return &plan, usage, nil
}

// Code calls the Coder persona: Plan Spec + project spec (+ violation
// feedback from a previous attempt) -> Generated Code. It parses the delimited multi-file response, retrying
// once with feedback on a parse failure (spec §4.6).
func (a *Agent) Code(ctx context.Context, plan *PlanSpec, spec *config.ProjectSpec, violations []string) (GeneratedCode, Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, Usage{}, &AgentError{Kind: ErrKindCancelled, Message: "code aborted before call", Cause: err}
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, Usage{}, &AgentError{Kind: ErrKindInvalidJSON, Message: "marshal plan spec for coder prompt", Cause: err}
	}

	userPrompt := a.builder.BuildCoder(prompt.CoderInput{Project: spec, PlanJSON: string(planJSON), Violations: violations})
	req := llm.Request{
		SystemPrompt: "Emit exactly three file sections, each introduced by a line of the form " +
			"\"=== path/to/file ===\", with no other text outside those sections.",
		UserPrompt: userPrompt,
	}

	code, usage, err := a.tryCode(ctx, req)
	if err == nil {
		return code, usage, nil
	}

	if ctx.Err() != nil {
		return nil, usage, &AgentError{Kind: ErrKindCancelled, Message: "code cancelled during retry", Cause: ctx.Err()}
	}

	a.log.Warn("coder output unparseable, retrying with format feedback", zap.Error(err))
	req.UserPrompt = userPrompt + "\n\n## Repair\n\nYour previous response could not be split into file sections. " +
		"Error: " + err.Error() + "\nRespond again using only \"=== path ===\" section headers followed by file content."

	code, usage2, err := a.tryCode(ctx, req)
	usage = usage.Add(usage2)
	if err != nil {
		return nil, usage, &AgentError{Kind: ErrKindParseFailure, Message: "coder output unparseable after repair retry", Cause: err}
	}
	return code, usage, nil
}

func (a *Agent) tryCode(ctx context.Context, req llm.Request) (GeneratedCode, Usage, error) {
	resp, err := a.gateway.Complete(ctx, req)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("gateway: %w", err)
	}
	usage := Usage{Model: resp.Model, PromptTokens: resp.PromptTokens, CompletionTokens: resp.CompletionTokens}
	code, err := parseGeneratedCode(resp.Text)
	return code, usage, err
}

// parseGeneratedCode splits a Coder response on "=== path ===" headers. If
// no header is found it falls back to a single fenced code block, then to
// the raw trimmed response under a "main.go" path — the same JSON-first/
// code-block/raw-text cascade the teacher's parseCodeResponse uses, with
// "JSON-first" replaced by "header-first" since the Coder persona is asked
// for delimited sections rather than a JSON envelope.
func parseGeneratedCode(response string) (GeneratedCode, error) {
	locs := fileHeaderRegex.FindAllStringSubmatchIndex(response, -1)
	if len(locs) > 0 {
		out := make(GeneratedCode, len(locs))
		names := fileHeaderRegex.FindAllStringSubmatch(response, -1)
		for i, loc := range locs {
			contentStart := loc[1]
			contentEnd := len(response)
			if i+1 < len(locs) {
				contentEnd = locs[i+1][0]
			}
			path := strings.TrimSpace(names[i][1])
			content := strings.TrimSpace(response[contentStart:contentEnd])
			if path == "" || content == "" {
				continue
			}
			out[path] = content
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("file headers matched but no non-empty sections found")
		}
		return out, nil
	}

	codeBlock := regexp.MustCompile("```(?:\\w+)?\\n([\\s\\S]*?)```").FindAllStringSubmatch(response, -1)
	if len(codeBlock) > 0 {
		return GeneratedCode{"main.go": strings.TrimSpace(codeBlock[len(codeBlock)-1][1])}, nil
	}

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}
	return GeneratedCode{"main.go": trimmed}, nil
}

// PlanAndCode runs Plan then Code through one Generation Context, per
// spec §4.6's plan_and_code composite operation.
func (a *Agent) PlanAndCode(ctx context.Context, parsed *examples.ParsedExamples, spec *config.ProjectSpec) (*PlanSpec, GeneratedCode, Usage, error) {
	plan, usage, err := a.Plan(ctx, parsed, spec)
	if err != nil {
		return nil, nil, usage, err
	}
	code, codeUsage, err := a.Code(ctx, plan, spec, nil)
	usage = usage.Add(codeUsage)
	if err != nil {
		return plan, nil, usage, err
	}
	return plan, code, usage, nil
}
