package constraints

import (
	"fmt"
	"go/ast"
	"go/token"
)

// checkComplexityAndSize is stage 6 (spec §4.7.6): McCabe cyclomatic
// complexity per function, plus max lines per function and per type
// declaration. The complexity walk mirrors spec's own definition (start at
// 1, +1 per branch/loop/boolean-join), re-expressed over Go's AST node set
// (if/for/switch-case/select-case/&&/||) in place of the
// if/elif/for/while/and/or/case/except/ternary list spec.md gives for the
// source language.
func checkComplexityAndSize(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	var violations []Violation

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}

		if rules.MaxComplexity > 0 {
			c := cyclomaticComplexity(fd.Body)
			if c > rules.MaxComplexity {
				pos := fset.Position(fd.Pos())
				violations = append(violations, Violation{
					Code:     CodeHighComplexity,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s has cyclomatic complexity %d (max %d)", fd.Name.Name, c, rules.MaxComplexity),
					Line:     pos.Line, Column: pos.Column,
					Suggestion: "split the function into smaller named helpers",
				})
			}
		}

		if rules.MaxMethodLines > 0 {
			start, end := fset.Position(fd.Pos()).Line, fset.Position(fd.End()).Line
			if lines := end - start + 1; lines > rules.MaxMethodLines {
				violations = append(violations, Violation{
					Code:     CodeMaxMethodLines,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s is %d lines (max %d)", fd.Name.Name, lines, rules.MaxMethodLines),
					Line:     start, Column: fset.Position(fd.Pos()).Column,
					Suggestion: "extract part of this function into a helper",
				})
			}
		}
	}

	if rules.MaxTypeLines > 0 {
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
				start, end := fset.Position(ts.Pos()).Line, fset.Position(ts.End()).Line
				if lines := end - start + 1; lines > rules.MaxTypeLines {
					violations = append(violations, Violation{
						Code:     CodeMaxTypeLines,
						Severity: SeverityWarning,
						Message:  fmt.Sprintf("type %s is %d lines (max %d)", ts.Name.Name, lines, rules.MaxTypeLines),
						Line:     start, Column: fset.Position(ts.Pos()).Column,
						Suggestion: "split this type's fields across smaller composed types",
					})
				}
			}
		}
	}

	return violations
}

func cyclomaticComplexity(body *ast.BlockStmt) int {
	complexity := 1
	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IfStmt:
			complexity++
		case *ast.ForStmt:
			complexity++
		case *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			complexity++
		case *ast.CommClause:
			complexity++
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}
