// Package scaffold writes boilerplate endpoint-definition files, either a
// single starter endpoint or a full CRUD set.
package scaffold

import (
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// File is the template input derived from the target path.
type File struct {
	Package  string `validate:"required,alphanum"`
	Name     string `validate:"required,alphanum"`
	Singular string `validate:"required,alphanum"`
	Resource string `validate:"required"`
}

var plainTmpl = template.Must(template.New("plain").Parse(`package {{.Package}}

import "github.com/veneerhq/veneer"

// Register{{.Name}} wires the {{.Resource}} endpoints into c.
func Register{{.Name}}(c *veneer.Client) {
	c.MustRegister("list{{.Name}}", veneer.Get("/{{.Resource}}"))
}
`))

var crudTmpl = template.Must(template.New("crud").Parse(`package {{.Package}}

import "github.com/veneerhq/veneer"

// Register{{.Name}} wires the {{.Resource}} CRUD endpoints into c.
func Register{{.Name}}(c *veneer.Client) {
	c.
		MustRegister("list{{.Name}}", veneer.Get("/{{.Resource}}")).
		MustRegister("get{{.Singular}}", veneer.Get("/{{.Resource}}/:id").Path("id")).
		MustRegister("create{{.Singular}}", veneer.Post("/{{.Resource}}").Body()).
		MustRegister("update{{.Singular}}", veneer.Put("/{{.Resource}}/:id").Path("id").Body()).
		MustRegister("delete{{.Singular}}", veneer.Delete("/{{.Resource}}/:id").Path("id"))
}
`))

// Create writes a scaffolded endpoint file at path, refusing to clobber a
// file that already has content beyond a package clause.
func Create(path string, crud bool) error {
	empty, err := NearEmpty(path)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%s already has content, not overwriting", path)
	}

	f := Derive(path)
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("cannot scaffold %s: %w", path, err)
	}

	tmpl := plainTmpl
	if crud {
		tmpl = crudTmpl
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, f); err != nil {
		return err
	}
	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		return fmt.Errorf("format scaffold: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, src, 0o644)
}

// NearEmpty reports whether path is missing, blank, or holds nothing but
// comments and a package clause.
func NearEmpty(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "package ") {
			continue
		}
		return false, nil
	}
	return true, nil
}

// Derive builds the template input from the target path: "api/users.go"
// becomes package "api", resource "users", name "Users".
func Derive(path string) File {
	resource := strings.TrimSuffix(filepath.Base(path), ".go")
	resource = strings.ToLower(resource)

	name := exportName(resource)
	singular := name
	if strings.HasSuffix(singular, "s") && len(singular) > 1 {
		singular = singular[:len(singular)-1]
	}

	return File{
		Package:  packageName(filepath.Base(filepath.Dir(path))),
		Name:     name,
		Singular: singular,
		Resource: resource,
	}
}

func packageName(dir string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(dir) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		return "api"
	}
	return out
}

func exportName(s string) string {
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
