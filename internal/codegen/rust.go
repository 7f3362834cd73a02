// SPDX-License-Identifier: MPL-2.0

package codegen

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/dbcgen/dbcgen/internal/dbc"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	rustTemplates = template.Must(template.New("rust").Funcs(template.FuncMap{
		"hex": func(v uint32) string { return fmt.Sprintf("%x", v) },
	}).ParseFS(templateFS, "templates/*.tmpl"))

	declarationPattern = regexp.MustCompile(`^pub mod [a-z_][a-z0-9_]*;$`)
)

// RustEngine generates Rust decoders for CAN messages.
type RustEngine struct{}

// NewRustEngine returns the Rust engine.
func NewRustEngine() *RustEngine {
	return &RustEngine{}
}

// Generate parses the unit content and renders one Rust module. Nothing is
// written to w unless rendering succeeds.
func (e *RustEngine) Generate(cfg Config, w io.Writer) error {
	file, err := dbc.Parse(cfg.Content())
	if err != nil {
		return fmt.Errorf("parse %s: %w", cfg.UnitName(), err)
	}

	view, err := buildFileView(cfg, file)
	if err != nil {
		return fmt.Errorf("generate %s: %w", cfg.UnitName(), err)
	}

	return render(w, "unit.rs.tmpl", view)
}

// GenerateIndex renders the module file that declares every generated module
// and defines the common types shared files import.
func (e *RustEngine) GenerateIndex(_ Config, declarations string, w io.Writer) error {
	declarations = strings.TrimSpace(declarations)
	if declarations != "" {
		for i, line := range strings.Split(declarations, "\n") {
			if !declarationPattern.MatchString(line) {
				return fmt.Errorf("%w: line %d: %q", ErrInvalidDeclarations, i+1, line)
			}
		}
	}

	return render(w, "index.rs.tmpl", struct{ Declarations string }{declarations})
}

func render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := rustTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
