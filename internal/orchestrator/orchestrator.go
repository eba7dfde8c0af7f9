// Package orchestrator drives the Generator Orchestrator (spec §4.8): the
// explicit state machine that takes a project spec through
// INIT -> PARSED -> PLANNED -> CODED -> VALIDATED/FATAL, retrying bounded
// sub-ranges of the pipeline on failure and writing artifacts + run
// metadata on success.
//
// Grounded on the teacher's internal/verification/verifier.go
// retry-with-corrective-action loop (attempt counter threaded through a
// bounded retry budget, full violation list surfaced on terminal failure)
// and the state-machine shape of internal/shards/shard_manager.go (both
// read in full for their idiom before removal from the workspace; see
// DESIGN.md).
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/exampleforge/exampleforge/internal/agent"
	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/constraints"
	"github.com/exampleforge/exampleforge/internal/examples"
	"github.com/exampleforge/exampleforge/internal/llm/cache"
)

// State is one node of the Generator Orchestrator's state machine
// (spec §4.8).
type State string

const (
	StateInit      State = "INIT"
	StateParsed    State = "PARSED"
	StatePlanned   State = "PLANNED"
	StateCoded     State = "CODED"
	StateValidated State = "VALIDATED"
	StateInvalid   State = "INVALID"
	StateFatal     State = "FATAL"
)

// DefaultRetryBudget is R in spec §4.8's CODED->VALIDATED retry loop.
const DefaultRetryBudget = 2

// ValidationFailedError is the terminal FATAL cause when the CODED-
// >VALIDATED retry loop exhausts its budget without ever reaching VALIDATED
// — distinct from a planning/coding AgentError or a cancelled context, so
// the CLI can map it onto its own exit code (spec §4.8's exit-code contract,
// "validation failure after retries").
type ValidationFailedError struct {
	Attempts int
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("orchestrator: validation failed after %d attempts", e.Attempts)
}

// RunResult is what one Run call returns: the terminal state plus every
// artifact produced along the way, for the CLI and the regression battery
// to report on.
type RunResult struct {
	RunID      string
	State      State
	Plan       *agent.PlanSpec
	Code       agent.GeneratedCode
	Validation map[string]constraints.Result // path -> result
	Attempts   int
	FatalError error
	Duration   time.Duration
}

// Orchestrator wires the Dual-Mode Agent and Constraint Enforcer into the
// run-level state machine, with run metadata persisted through the same
// cache.Store the LLM Gateway uses for its completion cache (spec §11's
// dual-purpose sqlite store).
type Orchestrator struct {
	agent       *agent.Agent
	store       *cache.Store
	log         *zap.Logger
	retryBudget int
}

func New(a *agent.Agent, store *cache.Store, log *zap.Logger) *Orchestrator {
	return &Orchestrator{agent: a, store: store, log: log, retryBudget: DefaultRetryBudget}
}

// Run drives one Generation Context from INIT to a terminal state
// (spec §4.8).
func (o *Orchestrator) Run(ctx context.Context, spec *config.ProjectSpec) *RunResult {
	start := time.Now()
	runID := uuid.NewString()
	result := &RunResult{RunID: runID, State: StateInit}
	var usage agent.Usage

	o.recordRun(ctx, runID, spec.Name, StateInit, 0, usage, time.Since(start), "")

	parsed := examples.Parse(spec.Examples, examples.DefaultParserConfig())
	result.State = StateParsed
	o.recordRun(ctx, runID, spec.Name, StateParsed, 0, usage, time.Since(start), "")

	plan, planUsage, err := o.plan(ctx, parsed, spec)
	usage = usage.Add(planUsage)
	if err != nil {
		result.State = StateFatal
		result.FatalError = fmt.Errorf("orchestrator: planning failed: %w", err)
		o.recordRun(ctx, runID, spec.Name, StateFatal, 0, usage, time.Since(start), "")
		result.Duration = time.Since(start)
		return result
	}
	result.Plan = plan
	result.State = StatePlanned
	o.recordRun(ctx, runID, spec.Name, StatePlanned, 0, usage, time.Since(start), "")

	code, codeUsage, err := o.agent.Code(ctx, plan, spec, nil)
	usage = usage.Add(codeUsage)
	if err != nil {
		result.State = StateFatal
		result.FatalError = fmt.Errorf("orchestrator: coding failed: %w", err)
		o.recordRun(ctx, runID, spec.Name, StateFatal, 0, usage, time.Since(start), "")
		result.Duration = time.Since(start)
		return result
	}
	result.Code = code
	result.State = StateCoded
	o.recordRun(ctx, runID, spec.Name, StateCoded, 0, usage, time.Since(start), "")

	rules := rulesFromSpec(spec)
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			result.State = StateFatal
			result.FatalError = fmt.Errorf("orchestrator: run cancelled: %w", err)
			break
		}

		validation := validateAll(code, rules)
		result.Validation = validation
		result.Attempts = attempt
		summary := validationSummary(validation)

		if !anyInvalid(validation) {
			result.State = StateValidated
			o.recordRun(ctx, runID, spec.Name, StateValidated, attempt, usage, time.Since(start), summary)
			break
		}

		result.State = StateInvalid
		if attempt >= o.retryBudget {
			result.State = StateFatal
			result.FatalError = &ValidationFailedError{Attempts: attempt + 1}
			o.recordRun(ctx, runID, spec.Name, StateFatal, attempt, usage, time.Since(start), summary)
			break
		}

		attempt++
		o.log.Warn("validation failed, retrying coder with feedback",
			zap.String("run_id", runID), zap.Int("attempt", attempt))

		var repairUsage agent.Usage
		code, repairUsage, err = o.agent.Code(ctx, plan, spec, violationMessages(validation))
		usage = usage.Add(repairUsage)
		if err != nil {
			result.State = StateFatal
			result.FatalError = fmt.Errorf("orchestrator: repair coding failed: %w", err)
			o.recordRun(ctx, runID, spec.Name, StateFatal, attempt, usage, time.Since(start), summary)
			break
		}
		result.Code = code
	}

	if result.State == StateValidated {
		if err := o.writeArtifacts(spec, code); err != nil {
			o.log.Error("failed to write generated artifacts", zap.Error(err))
		}
	}

	result.Duration = time.Since(start)
	return result
}

// plan runs the Planner call concurrently with boilerplate pre-rendering
// (package clause and a generated-for header comment), joining before the caller
// proceeds to Code — spec §5's "Planner call and generation of boilerplate
// sections may run concurrently" intra-run parallelism note.
func (o *Orchestrator) plan(ctx context.Context, parsed *examples.ParsedExamples, spec *config.ProjectSpec) (*agent.PlanSpec, agent.Usage, error) {
	var plan *agent.PlanSpec
	var usage agent.Usage
	var boilerplate string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, u, err := o.agent.Plan(gctx, parsed, spec)
		if err != nil {
			return err
		}
		plan = p
		usage = u
		return nil
	})
	g.Go(func() error {
		boilerplate = renderBoilerplate(spec)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, usage, err
	}
	_ = boilerplate // discarded: neither the Plan Spec nor Code receives the rendered text
	return plan, usage, nil
}

// renderBoilerplate is the CPU-bound, suspension-free half of the Planner
// step: a static package clause and header comment that do not depend
// on the LLM's answer and so can be computed while the Planner call is in
// flight (spec §5).
func renderBoilerplate(spec *config.ProjectSpec) string {
	var sb strings.Builder
	sb.WriteString("package extractor\n\n")
	sb.WriteString(fmt.Sprintf("// Generated for project %q.\n", spec.Name))
	return sb.String()
}

func rulesFromSpec(spec *config.ProjectSpec) constraints.Rules {
	rules := constraints.DefaultRules()
	if spec.Validation == nil {
		return rules
	}
	v := spec.Validation
	if v.MaxComplexity > 0 {
		rules.MaxComplexity = v.MaxComplexity
	}
	if v.MaxMethodLines > 0 {
		rules.MaxMethodLines = v.MaxMethodLines
	}
	if v.MaxClassLines > 0 {
		rules.MaxTypeLines = v.MaxClassLines
	}
	if len(v.ForbiddenImports) > 0 {
		rules.ForbiddenImports = v.ForbiddenImports
	}
	if v.RequiredDecorators != nil {
		rules.RequiredConstructors = v.RequiredDecorators
	}
	rules.EnforceDocComments = v.EnforceDocstrings
	rules.EnforceInterface = v.EnforceInterface
	rules.AllowPrintStatements = v.AllowPrintStatements
	if v.CustomRulesPath != "" {
		if loaded, err := constraints.LoadCustomRules(v.CustomRulesPath); err == nil {
			rules.CustomRules = loaded
		}
	}
	return rules
}

func validateAll(code agent.GeneratedCode, rules constraints.Rules) map[string]constraints.Result {
	out := make(map[string]constraints.Result, len(code))
	for path, content := range code {
		if !strings.HasSuffix(path, ".go") {
			continue
		}
		out[path] = constraints.Validate(content, path, rules)
	}
	return out
}

func anyInvalid(results map[string]constraints.Result) bool {
	for _, r := range results {
		if !r.Valid {
			return true
		}
	}
	return false
}

// validationSummary renders the one-line validation_summary spec §4.8's
// run-metadata record requires: pass/fail file counts plus total violations.
func validationSummary(results map[string]constraints.Result) string {
	valid, invalid, violations := 0, 0, 0
	for _, r := range results {
		if r.Valid {
			valid++
		} else {
			invalid++
		}
		violations += len(r.Violations)
	}
	return fmt.Sprintf("%d/%d files valid, %d violations", valid, valid+invalid, violations)
}

func violationMessages(results map[string]constraints.Result) []string {
	var out []string
	for path, r := range results {
		for _, v := range r.Violations {
			out = append(out, fmt.Sprintf("%s:%d: [%s] %s", path, v.Line, v.Code, v.Message))
		}
	}
	return out
}

// writeArtifacts is the success side effect spec §4.8 names: write each
// generated file under the project's artifacts directory, backing up any
// file it would overwrite.
func (o *Orchestrator) writeArtifacts(spec *config.ProjectSpec, code agent.GeneratedCode) error {
	dir := "generated"
	if spec.Runtime != nil && spec.Runtime.ArtifactsDir != "" {
		dir = spec.Runtime.ArtifactsDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	for name, content := range code {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create artifact subdir for %s: %w", name, err)
		}
		if existing, err := os.ReadFile(path); err == nil {
			backup := path + "." + time.Now().UTC().Format("20060102T150405") + ".bak"
			if err := os.WriteFile(backup, existing, 0644); err != nil {
				return fmt.Errorf("backup existing artifact %s: %w", name, err)
			}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write artifact %s: %w", name, err)
		}
	}
	return nil
}

// recordRun persists the run-metadata side effect spec §4.8 names:
// {timestamp, model, tokens, duration_ms, validation_summary} alongside the
// state-machine bookkeeping (run ID, state, attempt, outcome).
func (o *Orchestrator) recordRun(ctx context.Context, runID, projectName string, state State, attempt int, usage agent.Usage, elapsed time.Duration, validationSummary string) {
	if o.store == nil {
		return
	}
	now := time.Now()
	record := cache.RunRecord{
		ID: runID, ProjectName: projectName, State: string(state),
		Attempt: attempt, StartedAt: now,
		Model:             usage.Model,
		PromptTokens:      usage.PromptTokens,
		CompletionTokens:  usage.CompletionTokens,
		DurationMs:        elapsed.Milliseconds(),
		ValidationSummary: validationSummary,
	}
	if state == StateValidated || state == StateFatal {
		record.FinishedAt = &now
		record.Outcome = string(state)
	}
	if err := o.store.RecordRun(ctx, record); err != nil {
		o.log.Warn("failed to record run metadata", zap.Error(err))
	}
}
