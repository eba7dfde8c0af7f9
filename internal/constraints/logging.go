package constraints

import (
	"fmt"
	"go/ast"
	"go/token"
)

// loggingCallSelectors identifies a call as "logging" for the purpose of
// the unlogged-recovery check below: any zap-style .Error/.Warn/.Info call,
// matching the ambient logging stack the rest of the repo uses (§10.1).
var loggingCallSelectors = map[string]bool{"Error": true, "Warn": true, "Warning": true, "Info": true, "Debug": true}

// checkLogging is stage 8 (spec §4.7.8). print(...) becomes any
// fmt.Print/Println/Printf call; the "except branch without a logging
// call" check is reframed around Go's nearest analog to a caught
// exception, a deferred recover(), since ordinary `if err != nil { return
// err }` propagation is idiomatic Go and not the pattern spec.md is
// warning about.
func checkLogging(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	var violations []Violation

	if !rules.AllowPrintStatements {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			pkg, ok := sel.X.(*ast.Ident)
			if !ok || pkg.Name != "fmt" {
				return true
			}
			if sel.Sel.Name == "Print" || sel.Sel.Name == "Println" || sel.Sel.Name == "Printf" {
				pos := fset.Position(call.Pos())
				violations = append(violations, Violation{
					Code:     CodePrintStatement,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("fmt.%s writes directly to stdout", sel.Sel.Name),
					Line:     pos.Line, Column: pos.Column,
					Suggestion: "use the injected logger instead of fmt.Print*",
				})
			}
			return true
		})
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			deferStmt, ok := n.(*ast.DeferStmt)
			if !ok {
				return true
			}
			if !callsRecover(deferStmt.Call) {
				return true
			}
			if !containsLoggingCall(deferStmt.Call) {
				pos := fset.Position(deferStmt.Pos())
				violations = append(violations, Violation{
					Code:     CodeUnloggedException,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s recovers a panic without logging it", fd.Name.Name),
					Line:     pos.Line, Column: pos.Column,
					Suggestion: "log the recovered value before returning",
				})
			}
			return true
		})
	}

	return violations
}

func callsRecover(call *ast.CallExpr) bool {
	found := false
	ast.Inspect(call, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Ident); ok && ident.Name == "recover" {
			found = true
		}
		return true
	})
	return found
}

func containsLoggingCall(call *ast.CallExpr) bool {
	found := false
	ast.Inspect(call, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok && loggingCallSelectors[sel.Sel.Name] {
			found = true
		}
		return true
	})
	return found
}
