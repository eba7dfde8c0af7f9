package regression

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exampleforge/exampleforge/internal/agent"
	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/llm"
	"github.com/exampleforge/exampleforge/internal/llm/cache"
	"github.com/exampleforge/exampleforge/internal/orchestrator"
	"github.com/exampleforge/exampleforge/internal/prompt"
	"github.com/exampleforge/exampleforge/internal/value"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if s.calls >= len(s.responses) {
		return llm.Response{}, &llm.Error{Provider: "scripted", Message: "no more scripted responses"}
	}
	text := s.responses[s.calls]
	s.calls++
	return llm.Response{Text: text}, nil
}

func newTestOrchestrator(t *testing.T, responses []string) *orchestrator.Orchestrator {
	t.Helper()
	p := &scriptedProvider{responses: responses}
	gw := llm.NewGateway(p, llm.Config{MaxRetries: 0}, zap.NewNop())
	a := agent.New(gw, prompt.NewBuilder(prompt.DefaultBudget()), zap.NewNop())

	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := cache.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return orchestrator.New(a, store, zap.NewNop())
}

const validPlanJSON = `{"strategy":"map fields","modules":[{"name":"extractor","purpose":"extract","classes":[]}],"imports":[],"error_handling_notes":"","test_outline":""}`

const validCodeResponse = `=== extractor.go ===
package extractor

// RowExtractor extracts a row into the output shape.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	return in, nil
}
`

func examplePair(t *testing.T, in, out string) config.ExamplePair {
	t.Helper()
	iv, err := value.FromJSON([]byte(in))
	require.NoError(t, err)
	ov, err := value.FromJSON([]byte(out))
	require.NoError(t, err)
	return config.ExamplePair{Input: iv, Output: ov}
}

func testSpec(t *testing.T, dir string) config.ProjectSpec {
	return config.ProjectSpec{
		Name: "proj",
		Examples: []config.ExamplePair{
			examplePair(t, `{"name":"a"}`, `{"name":"a"}`),
		},
		Runtime: &config.RuntimeOpts{ArtifactsDir: dir},
	}
}

func TestRun_MatchesWhenOutcomeEqualsRecorded(t *testing.T) {
	o := newTestOrchestrator(t, []string{validPlanJSON, validCodeResponse})
	b := &Battery{
		Version: 1,
		Scenarios: []Scenario{
			{ID: "happy-path", Spec: testSpec(t, t.TempDir()), ExpectedState: orchestrator.StateValidated},
		},
	}

	diffs := Run(context.Background(), b, o)
	require.Len(t, diffs, 1)
	assert.True(t, diffs[0].Match)
	assert.False(t, AnyMismatch(diffs))
}

func TestRun_ReportsDriftOnStateMismatch(t *testing.T) {
	invalidCode := `=== extractor.go ===
package extractor

type RowExtractor struct{}
`
	o := newTestOrchestrator(t, []string{validPlanJSON, invalidCode, invalidCode, invalidCode})
	b := &Battery{
		Version: 1,
		Scenarios: []Scenario{
			{ID: "now-fails", Spec: testSpec(t, t.TempDir()), ExpectedState: orchestrator.StateValidated},
		},
	}

	diffs := Run(context.Background(), b, o)
	require.Len(t, diffs, 1)
	assert.False(t, diffs[0].Match)
	assert.Equal(t, orchestrator.StateFatal, diffs[0].GotState)
	assert.True(t, AnyMismatch(diffs))
}
