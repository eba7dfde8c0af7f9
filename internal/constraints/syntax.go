package constraints

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
)

// runSyntaxStage is the spec's stage 1: parse to an AST, short-circuiting
// the rest of the cascade on failure (grounded on the teacher's
// validateGoSyntax in internal/core/validator_syntax.go, which uses the
// same go/parser.ParseFile(..., parser.AllErrors) call).
func runSyntaxStage(fset *token.FileSet, filename string, src string) (*ast.File, []Violation, bool) {
	if filename == "" {
		filename = "generated.go"
	}
	file, err := parser.ParseFile(fset, filename, src, parser.AllErrors|parser.ParseComments)
	if err != nil {
		line, col := 0, 0
		if errList, ok := err.(scanner.ErrorList); ok && len(errList) > 0 {
			line, col = errList[0].Pos.Line, errList[0].Pos.Column
		}
		return nil, []Violation{{
			Code:       CodeSyntaxError,
			Severity:   SeverityError,
			Message:    "syntax error: " + err.Error(),
			Line:       line,
			Column:     col,
			Suggestion: "fix the reported syntax error and resubmit the file",
		}}, false
	}
	return file, nil, true
}
