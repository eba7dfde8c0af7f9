package constraints

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// checkForbiddenImports is stage 5 (spec §4.7.5): reject any import of a
// configured forbidden path, and any dotted sub-import of the same root
// (e.g. forbidding "os" also forbids "os/exec"), grounded on the teacher's
// per-extension validator registry pattern of walking declared imports
// directly rather than resolving a full dependency graph.
func checkForbiddenImports(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	var violations []Violation
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		for _, forbidden := range rules.ForbiddenImports {
			if path == forbidden || strings.HasPrefix(path, forbidden+"/") {
				pos := fset.Position(imp.Pos())
				violations = append(violations, Violation{
					Code:       CodeForbiddenImport,
					Severity:   SeverityError,
					Message:    fmt.Sprintf("import %q is forbidden by project configuration", path),
					Line:       pos.Line,
					Column:     pos.Column,
					Suggestion: "remove the import or request an exception in the project's validation rules",
				})
				break
			}
		}
	}
	return violations
}
