package constraints

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

// dangerousCalls are the Go analogs of spec §4.7.7's eval/exec/compile
// family: the capability being guarded against is arbitrary code execution
// or out-of-process shelling, which in Go surfaces through these selector
// expressions rather than language builtins.
var dangerousCalls = map[string]map[string]bool{
	"exec":    {"Command": true, "CommandContext": true},
	"syscall": {"Exec": true},
	"plugin":  {"Open": true},
}

// sqlExecMethods are the database/sql-style method names whose first
// argument is a query string (spec §4.7.7's ".execute(...)" check).
var sqlExecMethods = map[string]bool{"Exec": true, "ExecContext": true, "Query": true, "QueryContext": true, "QueryRow": true, "QueryRowContext": true}

// credentialNamePattern matches identifier names spec §4.7.7 flags for a
// hardcoded-credential check, verbatim from the spec.
var credentialNamePattern = regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)`)

// checkSecurity is stage 7 (spec §4.7.7).
func checkSecurity(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	var violations []Violation

	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}

		if methods, ok := dangerousCalls[pkgIdent.Name]; ok && methods[sel.Sel.Name] {
			pos := fset.Position(call.Pos())
			violations = append(violations, Violation{
				Code:     CodeDangerousFunction,
				Severity: SeverityError,
				Message:  fmt.Sprintf("call to %s.%s is a dangerous function", pkgIdent.Name, sel.Sel.Name),
				Line:     pos.Line, Column: pos.Column,
				Suggestion: "remove this call; generated extractors must not shell out or load plugins",
			})
		}

		if sqlExecMethods[sel.Sel.Name] && len(call.Args) > 0 && buildsStringDynamically(call.Args[0]) {
			pos := fset.Position(call.Pos())
			violations = append(violations, Violation{
				Code:     CodeSQLInjectionRisk,
				Severity: SeverityError,
				Message:  fmt.Sprintf("%s is called with a dynamically built query string", sel.Sel.Name),
				Line:     pos.Line, Column: pos.Column,
				Suggestion: "use a parameterized query with placeholders instead of concatenating/formatting the SQL text",
			})
		}
		return true
	})

	ast.Inspect(file, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignStmt)
		if ok {
			violations = append(violations, checkCredentialAssign(fset, assign.Lhs, assign.Rhs)...)
			return true
		}
		valueSpec, ok := n.(*ast.ValueSpec)
		if ok {
			lhs := make([]ast.Expr, len(valueSpec.Names))
			for i, name := range valueSpec.Names {
				lhs[i] = name
			}
			violations = append(violations, checkCredentialAssign(fset, lhs, valueSpec.Values)...)
		}
		return true
	})

	return violations
}

func checkCredentialAssign(fset *token.FileSet, lhs, rhs []ast.Expr) []Violation {
	var violations []Violation
	for i, l := range lhs {
		if i >= len(rhs) {
			break
		}
		ident, ok := l.(*ast.Ident)
		if !ok || !credentialNamePattern.MatchString(ident.Name) {
			continue
		}
		lit, ok := rhs[i].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			continue
		}
		value, err := strconv.Unquote(lit.Value)
		if err != nil || !looksHighEntropy(value) {
			continue
		}
		pos := fset.Position(lit.Pos())
		violations = append(violations, Violation{
			Code:     CodeHardcodedCredential,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s is assigned a hardcoded credential-looking literal", ident.Name),
			Line:     pos.Line, Column: pos.Column,
			Suggestion: "load this value from configuration or an environment reference instead",
		})
	}
	return violations
}

// buildsStringDynamically reports whether expr is a string built at
// runtime (concatenation or fmt.Sprintf) rather than a literal.
func buildsStringDynamically(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		return e.Op == token.ADD
	case *ast.CallExpr:
		if sel, ok := e.Fun.(*ast.SelectorExpr); ok {
			if pkg, ok := sel.X.(*ast.Ident); ok && pkg.Name == "fmt" {
				return strings.HasPrefix(sel.Sel.Name, "Sprint")
			}
		}
	}
	return false
}

// looksHighEntropy is a coarse stand-in for spec §4.7.7's "high-entropy
// pattern" check: long enough, and mixing character classes, to look like
// a generated secret rather than a short human-chosen placeholder. No
// library in the corpus computes string entropy, so this is hand-rolled
// (stdlib-justified per DESIGN.md).
func looksHighEntropy(s string) bool {
	if len(s) < 12 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	classes := 0
	for _, b := range []bool{hasUpper, hasLower, hasDigit} {
		if b {
			classes++
		}
	}
	return classes >= 2
}
