package constraints

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCustomRules_MissingFileIsNotAnError(t *testing.T) {
	rules, err := LoadCustomRules(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestLoadCustomRules_SkipsInvalidRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	contents := `{
		"rules": [
			{"id": "OK1", "category": "security", "severity": "error", "pattern": "eval\\(", "message": "no eval", "enabled": true},
			{"id": "", "category": "security", "severity": "error", "pattern": "x", "message": "missing id", "enabled": true},
			{"id": "BADREGEX", "category": "security", "severity": "error", "pattern": "(", "message": "bad", "enabled": true},
			{"id": "DISABLED", "category": "style", "severity": "info", "pattern": "x", "message": "off", "enabled": false}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	rules, err := LoadCustomRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "OK1", rules[0].ID)
}

func TestApplyCustomRules_MatchesPerLine(t *testing.T) {
	rules := []CustomRule{{
		ID: "NO_PANIC", Category: "bug", Severity: "error", Pattern: `panic\(`,
		Message: "avoid panic in generated code", Enabled: true,
	}}
	src := "package extractor\n\nfunc f() {\n\tpanic(\"no\")\n}\n"
	violations := applyCustomRules(src, rules)
	require.Len(t, violations, 1)
	assert.Equal(t, 4, violations[0].Line)
	assert.Equal(t, Severity("error"), violations[0].Severity)
}

func TestValidateCustomRule_RejectsUnknownCategory(t *testing.T) {
	err := validateCustomRule(CustomRule{
		ID: "X", Category: "not-a-category", Severity: "error", Pattern: "x", Message: "m",
	})
	assert.ErrorContains(t, err, "invalid category")
}

func TestCheckCustomRules_LanguagesFilterSkipsNonMatchingFiles(t *testing.T) {
	rules := Rules{CustomRules: []CustomRule{{
		ID: "NO_PANIC", Category: "bug", Severity: "error", Pattern: `panic\(`,
		Message: "avoid panic", Languages: []string{"python"}, Enabled: true,
	}}}
	src := "package extractor\n\nfunc f() {\n\tpanic(\"no\")\n}\n"

	assert.Empty(t, checkCustomRules(src, "extractor.go", rules))
	assert.Len(t, checkCustomRules(src, "extractor.py", rules), 1)
}
