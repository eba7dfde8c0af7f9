package constraints

import (
	"fmt"
	"go/ast"
	"go/token"
)

// ExtractorMethod is the method every *Extractor struct must implement to
// satisfy the target interface contract (spec §4.4.ii "the extractor
// protocol"; the Go reframing of §4.7.2 names an actual interface type
// rather than a base-class clause). A Go source file has no "implements"
// declaration to point at, so conformance is checked structurally: does a
// method with this name exist on the type. Its parameter and result types
// are not checked.
const ExtractorMethod = "Extract"

// checkInterfaceConformance is stage 2 (spec §4.7.2, reframed per
// SPEC_FULL.md §1): every *Extractor struct must declare a method named
// Extract; the method's signature is not inspected.
func checkInterfaceConformance(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	if !rules.EnforceInterface {
		return nil
	}
	var violations []Violation
	for _, ts := range extractorTypes(file) {
		if !hasMethod(file, ts.Name.Name, ExtractorMethod) {
			pos := fset.Position(ts.Pos())
			violations = append(violations, Violation{
				Code:     CodeMissingInterface,
				Severity: SeverityError,
				Message:  fmt.Sprintf("%s does not implement %s()", ts.Name.Name, ExtractorMethod),
				Line:     pos.Line,
				Column:   pos.Column,
				Suggestion: fmt.Sprintf(
					"add a method 'func (x *%s) %s(in value.Value) (value.Value, error)'",
					ts.Name.Name, ExtractorMethod),
			})
		}
	}
	return violations
}

// checkDependencyInjection is stage 3 (spec §4.7.3, reframed): every
// *Extractor type with a non-empty Rules.RequiredConstructors entry must
// have a constructor function named New<Type> whose parameters cover that
// configured injectable set; types without an entry are not checked
// (Rules.RequiredConstructors), in place of the source language's
// constructor-decorator convention.
func checkDependencyInjection(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	var violations []Violation
	for _, ts := range extractorTypes(file) {
		required, ok := rules.RequiredConstructors[ts.Name.Name]
		if !ok || len(required) == 0 {
			continue
		}
		ctor := findConstructor(file, ts.Name.Name)
		if ctor == nil {
			pos := fset.Position(ts.Pos())
			violations = append(violations, Violation{
				Code:       CodeMissingConstructor,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("%s has no New%s constructor", ts.Name.Name, ts.Name.Name),
				Line:       pos.Line,
				Column:     pos.Column,
				Suggestion: fmt.Sprintf("add a func New%s(%s) *%s", ts.Name.Name, joinTypes(required), ts.Name.Name),
			})
			continue
		}
		present := constructorParamTypes(ctor)
		for _, want := range required {
			if !containsString(present, want) {
				pos := fset.Position(ctor.Pos())
				violations = append(violations, Violation{
					Code:     CodeMissingConstructor,
					Severity: SeverityError,
					Message:  fmt.Sprintf("New%s does not accept a %s dependency", ts.Name.Name, want),
					Line:     pos.Line,
					Column:   pos.Column,
					Suggestion: fmt.Sprintf(
						"add a %s parameter to New%s so the dependency is injected, not constructed internally", want, ts.Name.Name),
				})
			}
		}
	}
	return violations
}

// checkDocComments is stage 4 (spec §4.7.4 "type hints", reframed per
// SPEC_FULL.md §1 as doc-comment coverage: Go already requires parameter
// and return types syntactically, so the hint check becomes "every
// exported declaration carries a doc comment").
func checkDocComments(fset *token.FileSet, file *ast.File, rules Rules) []Violation {
	if !rules.EnforceDocComments {
		return nil
	}
	var violations []Violation
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !d.Name.IsExported() {
				continue
			}
			if d.Doc == nil || len(d.Doc.List) == 0 {
				pos := fset.Position(d.Pos())
				violations = append(violations, Violation{
					Code:       CodeMissingDocComment,
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("exported func %s has no doc comment", d.Name.Name),
					Line:       pos.Line,
					Column:     pos.Column,
					Suggestion: fmt.Sprintf("add a doc comment starting with \"%s \"", d.Name.Name),
				})
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok || !ts.Name.IsExported() {
					continue
				}
				doc := ts.Doc
				if doc == nil {
					doc = d.Doc
				}
				if doc == nil || len(doc.List) == 0 {
					pos := fset.Position(ts.Pos())
					violations = append(violations, Violation{
						Code:       CodeMissingDocComment,
						Severity:   SeverityWarning,
						Message:    fmt.Sprintf("exported type %s has no doc comment", ts.Name.Name),
						Line:       pos.Line,
						Column:     pos.Column,
						Suggestion: fmt.Sprintf("add a doc comment starting with \"%s \"", ts.Name.Name),
					})
				}
			}
		}
	}
	return violations
}

func hasMethod(file *ast.File, typeName, methodName string) bool {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
			continue
		}
		if fd.Name.Name != methodName {
			continue
		}
		if receiverTypeName(fd.Recv.List[0].Type) == typeName {
			return true
		}
	}
	return false
}

func findConstructor(file *ast.File, typeName string) *ast.FuncDecl {
	want := "New" + typeName
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if ok && fd.Recv == nil && fd.Name.Name == want {
			return fd
		}
	}
	return nil
}

func constructorParamTypes(fd *ast.FuncDecl) []string {
	var out []string
	if fd.Type.Params == nil {
		return out
	}
	for _, field := range fd.Type.Params.List {
		out = append(out, exprString(field.Type))
	}
	return out
}

func receiverTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// exprString renders a type expression back to source-ish text for
// comparison against Rules.RequiredConstructors, which names dependency
// types as plain strings (e.g. "*llm.Gateway", "*zap.Logger").
func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(e.Elt)
	default:
		return fmt.Sprintf("%T", expr)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func joinTypes(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += "dep" + fmt.Sprint(i) + " " + t
	}
	return out
}
