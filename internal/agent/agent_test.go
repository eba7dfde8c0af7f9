package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/examples"
	"github.com/exampleforge/exampleforge/internal/llm"
	"github.com/exampleforge/exampleforge/internal/prompt"
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

func newTestAgent(p llm.Provider) *Agent {
	gw := llm.NewGateway(p, llm.Config{MaxRetries: 0}, zap.NewNop())
	return New(gw, prompt.NewBuilder(prompt.DefaultBudget()), zap.NewNop())
}

func TestAgent_Plan_ValidJSON(t *testing.T) {
	planJSON := `{"strategy":"map fields","modules":[{"name":"extractor","purpose":"extract","classes":[]}],"imports":[],"error_handling_notes":"","test_outline":""}`
	p := &scriptedProvider{responses: []string{planJSON}}
	a := newTestAgent(p)

	plan, _, err := a.Plan(context.Background(), &examples.ParsedExamples{}, &config.ProjectSpec{Name: "proj"})
	require.NoError(t, err)
	assert.Equal(t, "map fields", plan.Strategy)
	assert.Equal(t, 1, p.calls)
}

func TestAgent_Plan_RetriesOnceOnInvalidJSON(t *testing.T) {
	validJSON := `{"strategy":"s","modules":[{"name":"m","purpose":"p","classes":[]}],"imports":[],"error_handling_notes":"","test_outline":""}`
	p := &scriptedProvider{responses: []string{"not json at all", validJSON}}
	a := newTestAgent(p)

	plan, _, err := a.Plan(context.Background(), &examples.ParsedExamples{}, &config.ProjectSpec{Name: "proj"})
	require.NoError(t, err)
	assert.Equal(t, "s", plan.Strategy)
	assert.Equal(t, 2, p.calls)
}

func TestAgent_Plan_FailsAfterRepairRetryExhausted(t *testing.T) {
	p := &scriptedProvider{responses: []string{"garbage", "still garbage"}}
	a := newTestAgent(p)

	_, _, err := a.Plan(context.Background(), &examples.ParsedExamples{}, &config.ProjectSpec{Name: "proj"})
	require.Error(t, err)
	var agentErr *AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, ErrKindInvalidJSON, agentErr.Kind)
}

func TestAgent_Code_ParsesFileSections(t *testing.T) {
	response := "=== extractor.go ===\npackage extractor\n\n=== models.go ===\npackage extractor\n\n" +
		"=== extractor_test.go ===\npackage extractor\n"
	p := &scriptedProvider{responses: []string{response}}
	a := newTestAgent(p)

	plan := &PlanSpec{Strategy: "s", Modules: []PlanModule{{Name: "m"}}}
	code, _, err := a.Code(context.Background(), plan, &config.ProjectSpec{Name: "proj"}, nil)
	require.NoError(t, err)
	assert.Len(t, code, 3)
	assert.Contains(t, code["extractor.go"], "package extractor")
}

func TestAgent_Code_RetriesOnUnparseableResponse(t *testing.T) {
	goodResponse := "=== extractor.go ===\npackage extractor\n"
	p := &scriptedProvider{responses: []string{"", goodResponse}}
	a := newTestAgent(p)

	plan := &PlanSpec{Strategy: "s", Modules: []PlanModule{{Name: "m"}}}
	code, _, err := a.Code(context.Background(), plan, &config.ProjectSpec{Name: "proj"}, nil)
	require.NoError(t, err)
	assert.Contains(t, code, "extractor.go")
	assert.Equal(t, 2, p.calls)
}

func TestAgent_Code_FallsBackToRawResponse(t *testing.T) {
	p := &scriptedProvider{responses: []string{"package main\n\nfunc main() {}\n"}}
	a := newTestAgent(p)

	plan := &PlanSpec{Strategy: "s", Modules: []PlanModule{{Name: "m"}}}
	code, _, err := a.Code(context.Background(), plan, &config.ProjectSpec{Name: "proj"}, nil)
	require.NoError(t, err)
	require.Contains(t, code, "main.go")
	assert.Contains(t, code["main.go"], "func main")
}
