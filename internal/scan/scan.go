// Package scan discovers endpoint declarations in a directory tree.
//
// It prefers loading the directory as Go packages, so files with build tags
// and generated code resolve the same way the compiler sees them, and falls
// back to a file-by-file parse for folders that do not load as a package
// (scratch folders, freshly scaffolded trees).
package scan

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Route is one discovered verb + path-template declaration.
type Route struct {
	// Name is the registered method name, empty for declarations found
	// outside a Register call.
	Name string
	Verb string
	// Path is the template relative to any WithBasePath prefix declared in
	// the same file, and may contain :name placeholders.
	Path string
	// Params lists the placeholder names in declaration order.
	Params []string
	File   string
	Line   int
}

// verbCtors maps endpoint constructor names to HTTP verbs.
var verbCtors = map[string]string{
	"Get":    "GET",
	"Post":   "POST",
	"Put":    "PUT",
	"Patch":  "PATCH",
	"Delete": "DELETE",
}

// Dir scans dir recursively for endpoint declarations.
func Dir(dir string) ([]Route, error) {
	fset := token.NewFileSet()
	files, err := loadPackages(fset, dir)
	if err != nil {
		fset = token.NewFileSet()
		files, err = parseTree(fset, dir)
		if err != nil {
			return nil, err
		}
	}
	return collect(fset, files), nil
}

// loadPackages loads every package under dir with the go/packages driver.
func loadPackages(fset *token.FileSet, dir string) ([]*ast.File, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:  dir,
		Fset: fset,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	var files []*ast.File
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s: %v", pkg.PkgPath, pkg.Errors[0])
		}
		files = append(files, pkg.Syntax...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files under %s", dir)
	}
	return files, nil
}

// parseTree is the fallback scanner: a plain syntax parse of every .go file
// under dir, no build system involved.
func parseTree(fset *token.FileSet, dir string) ([]*ast.File, error) {
	var files []*ast.File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			// A half-written file under watch mode is not fatal.
			return nil
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files under %s", dir)
	}
	return files, nil
}

// collect walks the syntax trees for Register calls and bare endpoint
// constructors. Register'd declarations win over anonymous duplicates.
func collect(fset *token.FileSet, files []*ast.File) []Route {
	var routes []Route
	seen := map[string]int{} // "VERB path" -> index into routes
	for _, f := range files {
		base := basePathOf(f)
		named := map[token.Pos]bool{}

		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			if (sel.Sel.Name != "Register" && sel.Sel.Name != "MustRegister") || len(call.Args) != 2 {
				return true
			}
			name, ok := stringLit(call.Args[0])
			if !ok {
				return true
			}
			if r, pos, ok := endpointIn(call.Args[1]); ok {
				named[pos] = true
				r.Name = name
				addRoute(&routes, seen, finish(r, base, fset, pos))
			}
			return true
		})

		ast.Inspect(f, func(n ast.Node) bool {
			if r, pos, ok := endpointCall(n); ok && !named[pos] {
				addRoute(&routes, seen, finish(r, base, fset, pos))
			}
			return true
		})
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Verb < routes[j].Verb
	})
	return routes
}

// addRoute deduplicates on "VERB path", preferring named declarations.
func addRoute(routes *[]Route, seen map[string]int, r Route) {
	key := r.Verb + " " + r.Path
	if i, ok := seen[key]; ok {
		if (*routes)[i].Name == "" && r.Name != "" {
			(*routes)[i] = r
		}
		return
	}
	seen[key] = len(*routes)
	*routes = append(*routes, r)
}

// basePathOf finds a WithBasePath("...") literal in the file, applied as a
// prefix to every route declared in the same file.
func basePathOf(f *ast.File) string {
	base := ""
	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "WithBasePath" || len(call.Args) != 1 {
			return true
		}
		if s, ok := stringLit(call.Args[0]); ok {
			base = strings.TrimRight(s, "/")
		}
		return true
	})
	return base
}

// endpointIn finds the innermost endpoint constructor in an expression,
// looking through builder chains like Get("/x").Path("id").WithLogging().
func endpointIn(expr ast.Expr) (Route, token.Pos, bool) {
	var (
		route Route
		pos   token.Pos
		found bool
	)
	ast.Inspect(expr, func(n ast.Node) bool {
		if found {
			return false
		}
		if r, p, ok := endpointCall(n); ok {
			route, pos, found = r, p, true
			return false
		}
		return true
	})
	return route, pos, found
}

// endpointCall matches Get("/x")-style constructors and NewEndpoint(verb, path).
func endpointCall(n ast.Node) (Route, token.Pos, bool) {
	call, ok := n.(*ast.CallExpr)
	if !ok {
		return Route{}, 0, false
	}
	name := ""
	switch fun := call.Fun.(type) {
	case *ast.SelectorExpr:
		name = fun.Sel.Name
	case *ast.Ident:
		name = fun.Name
	default:
		return Route{}, 0, false
	}

	if verb, ok := verbCtors[name]; ok && len(call.Args) == 1 {
		if path, ok := stringLit(call.Args[0]); ok {
			return Route{Verb: verb, Path: path}, call.Pos(), true
		}
		return Route{}, 0, false
	}
	if name == "NewEndpoint" && len(call.Args) == 2 {
		verb, okV := stringLit(call.Args[0])
		path, okP := stringLit(call.Args[1])
		if okV && okP {
			return Route{Verb: strings.ToUpper(verb), Path: path}, call.Pos(), true
		}
	}
	return Route{}, 0, false
}

func finish(r Route, base string, fset *token.FileSet, pos token.Pos) Route {
	r.Path = base + r.Path
	r.Params = placeholdersOf(r.Path)
	p := fset.Position(pos)
	r.File = p.Filename
	r.Line = p.Line
	return r
}

// placeholdersOf lists the :name placeholders of a path template in order.
func placeholdersOf(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if name, ok := strings.CutPrefix(seg, ":"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func stringLit(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return s, true
}
