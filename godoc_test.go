package goAccount

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

// Interface implementations such as Error, Is, Unwrap and sink Emit methods are
// documented on the interface and are not checked.
var undocumentedMethods = map[string]bool{
	"Emit":   true,
	"Error":  true,
	"Is":     true,
	"Unwrap": true,
}

func TestExportedDeclarationsHaveDocComments(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}

	fset := token.NewFileSet()
	var missing []string
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if !d.Name.IsExported() || d.Doc != nil {
					continue
				}
				if d.Recv != nil && undocumentedMethods[d.Name.Name] {
					continue
				}
				missing = append(missing, fset.Position(d.Pos()).String()+" "+d.Name.Name)
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					ts := spec.(*ast.TypeSpec)
					if ts.Name.IsExported() && d.Doc == nil && ts.Doc == nil {
						missing = append(missing, fset.Position(ts.Pos()).String()+" "+ts.Name.Name)
					}
				}
			}
		}
	}

	if len(missing) > 0 {
		t.Fatalf("exported declarations without doc comments:\n%s", strings.Join(missing, "\n"))
	}
}
