// Package manifest renders the generated route-manifest source file: one
// string constant per discovered route, a map from parameterized routes to
// their placeholder names, and one params struct per parameterized route.
package manifest

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/veneerhq/veneer/internal/scan"
)

// Options configures the rendered file.
type Options struct {
	// Package is the target package name. Defaults to the output directory
	// name when writing, or "routes".
	Package string
	Routes  []scan.Route
}

// Render produces a gofmt-formatted source file for the routes.
func Render(opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "routes"
	}

	idents := identify(opts.Routes)

	var buf bytes.Buffer
	buf.WriteString("// Code generated by veneer. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)

	buf.WriteString("// Path is one discovered route, written as \"VERB /path/template\".\n")
	buf.WriteString("type Path string\n\n")

	if len(opts.Routes) == 0 {
		buf.WriteString("// Paths lists every discovered route.\nvar Paths = []Path{}\n")
		return format.Source(buf.Bytes())
	}

	buf.WriteString("const (\n")
	for i, r := range opts.Routes {
		fmt.Fprintf(&buf, "\t%s Path = %q\n", idents[i], r.Verb+" "+r.Path)
	}
	buf.WriteString(")\n\n")

	buf.WriteString("// Paths lists every discovered route.\n")
	buf.WriteString("var Paths = []Path{\n")
	for i := range opts.Routes {
		fmt.Fprintf(&buf, "\t%s,\n", idents[i])
	}
	buf.WriteString("}\n\n")

	buf.WriteString("// Params maps parameterized routes to their placeholder names.\n")
	buf.WriteString("var Params = map[Path][]string{\n")
	for i, r := range opts.Routes {
		if len(r.Params) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\t%s: {", idents[i])
		for j, p := range r.Params {
			if j > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%q", p)
		}
		buf.WriteString("},\n")
	}
	buf.WriteString("}\n")

	for i, r := range opts.Routes {
		if len(r.Params) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n// %sParams carries the placeholder values for %s.\n", idents[i], idents[i])
		fmt.Fprintf(&buf, "type %sParams struct {\n", idents[i])
		for _, p := range r.Params {
			fmt.Fprintf(&buf, "\t%s string `json:%q`\n", exportName(p), p)
		}
		buf.WriteString("}\n")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format manifest: %w", err)
	}
	return src, nil
}

// WriteFile renders and writes the manifest, creating parent directories.
func WriteFile(path string, opts Options) error {
	if opts.Package == "" {
		opts.Package = packageNameFor(path)
	}
	src, err := Render(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, src, 0o644)
}

// packageNameFor derives a package name from the output file's directory.
func packageNameFor(path string) string {
	name := filepath.Base(filepath.Dir(path))
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		return "routes"
	}
	return out
}

// identify assigns a unique exported identifier to each route, e.g.
// "GET /users/:id" becomes GetUsersID.
func identify(routes []scan.Route) []string {
	idents := make([]string, len(routes))
	used := map[string]int{}
	for i, r := range routes {
		id := identFor(r)
		if n := used[id]; n > 0 {
			used[id] = n + 1
			id = fmt.Sprintf("%s%d", id, n+1)
		}
		used[id]++
		idents[i] = id
	}
	return idents
}

func identFor(r scan.Route) string {
	var sb strings.Builder
	sb.WriteString(exportName(strings.ToLower(r.Verb)))
	for _, seg := range strings.Split(r.Path, "/") {
		seg = strings.TrimPrefix(seg, ":")
		sb.WriteString(exportName(seg))
	}
	if sb.Len() == 0 {
		return "Root"
	}
	return sb.String()
}

// commonInitialisms keeps generated identifiers idiomatic.
var commonInitialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"api":  "API",
	"http": "HTTP",
	"uid":  "UID",
	"uuid": "UUID",
}

// exportName turns a path segment or placeholder into an exported Go
// identifier chunk.
func exportName(s string) string {
	if up, ok := commonInitialisms[strings.ToLower(s)]; ok {
		return up
	}
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
