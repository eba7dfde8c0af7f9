// Package regression provides a lightweight regression battery harness for
// the Generator Orchestrator: a fixed corpus of recorded Generation
// Contexts (a project spec plus the Validation Result recorded against it
// at some known-good point in time), replayed against the orchestrator's
// current behavior and diffed for drift (spec §8's round-trip-testable
// property: "running the Example Parser twice on the same example pairs
// yields identical pattern sets" generalizes here to "running the full
// pipeline against the same project spec yields the same terminal state
// and violation set").
//
// Grounded on internal/regression/battery.go's load-from-YAML / run /
// collect-Result shape, adapted away from that file's shell-task-execution
// mechanics (exec.CommandContext against a `command` string) toward
// replaying recorded Generation Contexts through the orchestrator, since a
// Generation Context corpus and a shell-task corpus are different things:
// there is nothing here to shell out to.
package regression

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/constraints"
	"github.com/exampleforge/exampleforge/internal/orchestrator"
)

// Scenario is one recorded Generation Context: a project spec plus the
// terminal state and violation codes it produced the last time the
// battery was updated.
type Scenario struct {
	ID                     string             `yaml:"id"`
	Spec                   config.ProjectSpec `yaml:"spec"`
	ExpectedState          orchestrator.State `yaml:"expected_state"`
	ExpectedViolationCodes []string           `yaml:"expected_violation_codes,omitempty"`
}

// Battery is a collection of regression scenarios.
type Battery struct {
	Version   int        `yaml:"version"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Diff is one scenario's replay outcome against its recorded expectation.
type Diff struct {
	ScenarioID   string
	Match        bool
	GotState     orchestrator.State
	WantState    orchestrator.State
	MissingCodes []string // expected but not observed
	ExtraCodes   []string // observed but not expected
	FatalError   error
}

// LoadBattery reads a YAML regression battery from disk.
func LoadBattery(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("regression: parse battery YAML: %w", err)
	}
	return &b, nil
}

// Run replays every scenario through the orchestrator and diffs the
// outcome against what was recorded. It does not fail fast: every
// scenario runs so a single battery pass reports every drift found, the
// same "run everything, surface everything" philosophy the Constraint
// Enforcer cascade uses.
func Run(ctx context.Context, b *Battery, o *orchestrator.Orchestrator) []Diff {
	if b == nil || len(b.Scenarios) == 0 {
		return nil
	}

	diffs := make([]Diff, 0, len(b.Scenarios))
	for _, scenario := range b.Scenarios {
		spec := scenario.Spec
		result := o.Run(ctx, &spec)

		gotCodes := violationCodes(result.Validation)
		missing, extra := diffCodes(scenario.ExpectedViolationCodes, gotCodes)

		diffs = append(diffs, Diff{
			ScenarioID:   scenario.ID,
			Match:        result.State == scenario.ExpectedState && len(missing) == 0 && len(extra) == 0,
			GotState:     result.State,
			WantState:    scenario.ExpectedState,
			MissingCodes: missing,
			ExtraCodes:   extra,
			FatalError:   result.FatalError,
		})
	}
	return diffs
}

func violationCodes(validation map[string]constraints.Result) []string {
	var codes []string
	for _, res := range validation {
		for _, v := range res.Violations {
			codes = append(codes, string(v.Code))
		}
	}
	return codes
}

func diffCodes(want, got []string) (missing, extra []string) {
	wantSet := make(map[string]bool, len(want))
	for _, c := range want {
		wantSet[c] = true
	}
	gotSet := make(map[string]bool, len(got))
	for _, c := range got {
		gotSet[c] = true
	}
	for c := range wantSet {
		if !gotSet[c] {
			missing = append(missing, c)
		}
	}
	for c := range gotSet {
		if !wantSet[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

// AnyMismatch reports whether any scenario in a diff set drifted from its
// recorded expectation.
func AnyMismatch(diffs []Diff) bool {
	for _, d := range diffs {
		if !d.Match {
			return true
		}
	}
	return false
}
