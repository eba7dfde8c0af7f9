package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exampleforge/exampleforge/internal/agent"
	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/llm"
	"github.com/exampleforge/exampleforge/internal/orchestrator"
)

const minimalSpecYAML = `
project:
  name: weather-feed
  version: "1"
data_sources:
  - name: primary
    type: api
    endpoint: https://example.test/api
examples:
  - input: {a: "1"}
    output: {b: 1}
output:
  - format: csv
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateConfig_ValidSpecSucceeds(t *testing.T) {
	flagConfigPath = writeSpec(t, minimalSpecYAML)
	t.Cleanup(func() { flagConfigPath = "" })

	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"validate-config", "--config", flagConfigPath})

	err := root.Execute()
	require.NoError(t, err)
}

func TestValidateConfig_InvalidSpecFails(t *testing.T) {
	bad := "project:\n  name: \"Not Valid!\"\ndata_sources: []\nexamples: []\n"
	path := writeSpec(t, bad)
	t.Cleanup(func() { flagConfigPath = "" })

	root := newRootCmd()
	root.SetArgs([]string{"validate-config", "--config", path})

	err := root.Execute()
	require.Error(t, err)
}

func TestRenderWatchResult_ReflectsLatestFileContent(t *testing.T) {
	path := writeSpec(t, minimalSpecYAML)
	t.Cleanup(func() { flagConfigPath = "" })

	out := renderWatchResult(path)
	assert.Contains(t, out, "spec valid")

	require.NoError(t, os.WriteFile(path, []byte("project:\n  name: \"Not Valid!\"\ndata_sources: []\nexamples: []\n"), 0644))
	out = renderWatchResult(path)
	assert.Contains(t, out, "config invalid")
}

func TestGenerate_MissingProviderKeyFails(t *testing.T) {
	path := writeSpec(t, minimalSpecYAML)
	t.Cleanup(func() {
		flagConfigPath = ""
		os.Unsetenv("ANTHROPIC_API_KEY")
	})
	os.Unsetenv("ANTHROPIC_API_KEY")

	root := newRootCmd()
	root.SetArgs([]string{"generate", "--config", path, "--cache", filepath.Join(t.TempDir(), "cache.db")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestExitCode_ClassifiesEachErrorKind(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitConfigError, exitCode(&config.ConfigError{Kind: config.ErrMissingField, Path: "p", Message: "m"}))
	assert.Equal(t, exitAdapterError, exitCode(&agent.AgentError{Kind: agent.ErrKindInvalidJSON, Message: "bad plan"}))
	assert.Equal(t, exitCancelled, exitCode(&agent.AgentError{Kind: agent.ErrKindCancelled, Message: "cancelled"}))
	assert.Equal(t, exitAdapterError, exitCode(&llm.Error{Kind: llm.KindServer, Provider: "anthropic", Message: "status 500"}))
	assert.Equal(t, exitValidationFail, exitCode(&orchestrator.ValidationFailedError{Attempts: 3}))
	assert.Equal(t, exitCancelled, exitCode(context.Canceled))
	assert.Equal(t, exitInternal, exitCode(assert.AnError))
}
