// Package constraints implements the Constraint Enforcer (spec §4.7): an
// eight-stage static validator cascade run against each Go source file the
// Coder persona emits, plus a ninth user-defined custom-rule stage (spec
// §12). Grounded on the teacher's internal/core/validator_syntax.go (a
// per-extension validator registry, syntax stage via go/parser) and
// internal/shards/reviewer_custom_rules.go (custom regex rule loading).
//
// Every validator runs even when an earlier one reports violations, so a
// single pass surfaces everything wrong with a file — except the syntax
// stage, whose failure short-circuits the rest: without a parseable AST
// there is nothing left for stages 2-9 to walk (spec §4.7).
package constraints

import (
	"go/ast"
	"go/token"
	"time"
)

// Severity classifies a Violation's effect on the overall Validation
// Result. Only Critical and Error fail the result; Warning and Info are reported but
// never block (spec §4.7's failure semantics).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Code enumerates the violation kinds the built-in validators emit.
type Code string

const (
	CodeSyntaxError          Code = "SYNTAX_ERROR"
	CodeMissingInterface     Code = "MISSING_INTERFACE"
	CodeMissingConstructor   Code = "MISSING_DI_CONSTRUCTOR"
	CodeMissingDocComment    Code = "MISSING_DOC_COMMENT"
	CodeForbiddenImport      Code = "FORBIDDEN_IMPORT"
	CodeHighComplexity       Code = "HIGH_COMPLEXITY"
	CodeMaxMethodLines       Code = "MAX_METHOD_LINES"
	CodeMaxTypeLines         Code = "MAX_CLASS_LINES"
	CodeDangerousFunction    Code = "DANGEROUS_FUNCTION"
	CodeSQLInjectionRisk     Code = "SQL_INJECTION_RISK"
	CodeHardcodedCredential  Code = "HARDCODED_CREDENTIAL"
	CodePrintStatement       Code = "PRINT_STATEMENT"
	CodeUnloggedException    Code = "UNLOGGED_EXCEPTION"
)

// Violation is one finding from the validator cascade.
type Violation struct {
	Code       Code
	Severity   Severity
	Message    string
	Line       int
	Column     int
	Suggestion string
}

// Result is the Validation Result spec §4.7 returns from validate_code /
// validate_file.
type Result struct {
	Violations []Violation
	Valid      bool
	DurationMs int64
}

// Rules is the Constraint Enforcer's configuration (spec §6's
// constraint-enforcer configuration document).
type Rules struct {
	MaxComplexity        int
	MaxMethodLines       int
	MaxTypeLines         int
	ForbiddenImports     []string
	RequiredConstructors map[string][]string // extractor type -> required constructor param types
	EnforceDocComments   bool
	EnforceInterface     bool
	AllowPrintStatements bool
	CustomRules          []CustomRule
}

// DefaultForbiddenImports is the Go reframing of spec §6's Python-flavored
// default deny-list (os, subprocess, eval, exec, compile, __import__): the
// capabilities those names guard against — shelling out, unsafe memory
// access, loading arbitrary plugins — map onto these Go import paths.
var DefaultForbiddenImports = []string{"os/exec", "unsafe", "plugin", "net/rpc"}

// DefaultRules mirrors the teacher's configuration defaults (spec §6).
func DefaultRules() Rules {
	return Rules{
		MaxComplexity:        10,
		MaxMethodLines:       80,
		MaxTypeLines:         200,
		ForbiddenImports:     append([]string(nil), DefaultForbiddenImports...),
		RequiredConstructors: map[string][]string{},
		EnforceDocComments:   true,
		EnforceInterface:     true,
		AllowPrintStatements: false,
	}
}

// Validate runs the full cascade against source text and returns the
// aggregate Validation Result (spec §4.7's validate_code).
func Validate(src string, filename string, rules Rules) Result {
	start := time.Now()

	fset := token.NewFileSet()
	file, violations, ok := runSyntaxStage(fset, filename, src)
	if !ok {
		return Result{Violations: violations, Valid: false, DurationMs: elapsedMs(start)}
	}

	violations = append(violations, checkInterfaceConformance(fset, file, rules)...)
	violations = append(violations, checkDependencyInjection(fset, file, rules)...)
	violations = append(violations, checkDocComments(fset, file, rules)...)
	violations = append(violations, checkForbiddenImports(fset, file, rules)...)
	violations = append(violations, checkComplexityAndSize(fset, file, rules)...)
	violations = append(violations, checkSecurity(fset, file, rules)...)
	violations = append(violations, checkLogging(fset, file, rules)...)
	violations = append(violations, checkCustomRules(src, filename, rules)...)

	return Result{
		Violations: violations,
		Valid:      !hasErrorSeverity(violations),
		DurationMs: elapsedMs(start),
	}
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func hasErrorSeverity(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityError || v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// extractorTypes returns every top-level struct type whose name ends in
// "Extractor" (spec §4.7.2's "*Extractor" class-name convention), along
// with its ast.TypeSpec and enclosing GenDecl for position info.
func extractorTypes(file *ast.File) []*ast.TypeSpec {
	var out []*ast.TypeSpec
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, isStruct := ts.Type.(*ast.StructType); !isStruct {
				continue
			}
			if hasExtractorSuffix(ts.Name.Name) {
				out = append(out, ts)
			}
		}
	}
	return out
}

func hasExtractorSuffix(name string) bool {
	const suffix = "Extractor"
	return len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix
}
