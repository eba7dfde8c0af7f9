package constraints

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasCode(violations []Violation, code Code) bool {
	for _, v := range violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func TestValidate_SyntaxErrorShortCircuits(t *testing.T) {
	res := Validate("package main\nfunc {{{", "bad.go", DefaultRules())
	assert.False(t, res.Valid)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, CodeSyntaxError, res.Violations[0].Code)
}

func TestValidate_CleanFilePasses(t *testing.T) {
	src := `package extractor

// RowExtractor extracts a row into the output shape.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	return in, nil
}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.True(t, res.Valid)
	assert.False(t, hasCode(res.Violations, CodeMissingInterface))
	assert.False(t, hasCode(res.Violations, CodeMissingDocComment))
}

func TestValidate_MissingInterfaceMethod(t *testing.T) {
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.False(t, res.Valid)
	assert.True(t, hasCode(res.Violations, CodeMissingInterface))
}

func TestValidate_MissingConstructorDependency(t *testing.T) {
	rules := DefaultRules()
	rules.RequiredConstructors = map[string][]string{"RowExtractor": {"*llm.Gateway"}}
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) { return in, nil }

// NewRowExtractor builds a RowExtractor.
func NewRowExtractor() *RowExtractor { return &RowExtractor{} }
`
	res := Validate(src, "extractor.go", rules)
	assert.False(t, res.Valid)
	assert.True(t, hasCode(res.Violations, CodeMissingConstructor))
}

func TestValidate_ForbiddenImport(t *testing.T) {
	src := `package extractor

import "os/exec"

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	exec.Command("ls")
	return in, nil
}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.False(t, res.Valid)
	assert.True(t, hasCode(res.Violations, CodeForbiddenImport))
	assert.True(t, hasCode(res.Violations, CodeDangerousFunction))
}

func TestValidate_HighComplexityWarns(t *testing.T) {
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in int) (int, error) {
	if in == 1 {
		return 1, nil
	} else if in == 2 {
		return 2, nil
	} else if in == 3 {
		return 3, nil
	} else if in == 4 {
		return 4, nil
	} else if in == 5 {
		return 5, nil
	} else if in == 6 {
		return 6, nil
	} else if in == 7 {
		return 7, nil
	} else if in == 8 {
		return 8, nil
	} else if in == 9 {
		return 9, nil
	} else if in == 10 {
		return 10, nil
	}
	return 0, nil
}
`
	rules := DefaultRules()
	rules.MaxComplexity = 5
	res := Validate(src, "extractor.go", rules)
	assert.True(t, res.Valid) // complexity is a warning, not an error
	assert.True(t, hasCode(res.Violations, CodeHighComplexity))
}

func TestValidate_PrintStatementWarns(t *testing.T) {
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	fmt.Println("debug", in)
	return in, nil
}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.True(t, hasCode(res.Violations, CodePrintStatement))
}

func TestValidate_HardcodedCredential(t *testing.T) {
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	apiKey := "aB3xZ9qT7mN2wQ5r"
	_ = apiKey
	return in, nil
}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.False(t, res.Valid)
	assert.True(t, hasCode(res.Violations, CodeHardcodedCredential))
}

func TestValidate_SQLInjectionRisk(t *testing.T) {
	src := `package extractor

import "database/sql"

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(db *sql.DB, name string) (string, error) {
	db.Query("SELECT * FROM users WHERE name = " + name)
	return name, nil
}
`
	res := Validate(src, "extractor.go", DefaultRules())
	assert.True(t, hasCode(res.Violations, CodeSQLInjectionRisk))
}

func TestValidate_CustomRuleFires(t *testing.T) {
	rules := DefaultRules()
	rules.CustomRules = []CustomRule{{
		ID: "NO_TODO", Category: "maintainability", Severity: "warning",
		Pattern: `TODO`, Message: "leftover TODO marker", Enabled: true,
	}}
	src := `package extractor

// RowExtractor extracts a row.
type RowExtractor struct{}

// Extract implements the extractor protocol.
func (r *RowExtractor) Extract(in string) (string, error) {
	// TODO: handle edge case
	return in, nil
}
`
	res := Validate(src, "extractor.go", rules)
	assert.True(t, hasCode(res.Violations, Code("NO_TODO")))
}

func TestValidate_ReportsDurationAndStaysUnder100msFor2000Lines(t *testing.T) {
	var b strings.Builder
	b.WriteString("package extractor\n\n// RowExtractor extracts a row into the output shape.\ntype RowExtractor struct{}\n\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "// Extract%d implements the extractor protocol.\nfunc (r *RowExtractor) Extract%d(in string) (string, error) {\n\treturn in, nil\n}\n\n", i, i)
	}
	src := b.String()
	require.Less(t, strings.Count(src, "\n"), 2000)

	res := Validate(src, "extractor.go", DefaultRules())
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.Less(t, res.DurationMs, int64(100), "validation of a file under 2000 lines must stay under 100ms")
}
