// SPDX-License-Identifier: MPL-2.0

package codegen

// DefaultCommonTypesImport is the import line shared files start with when an
// index declares the common types.
const DefaultCommonTypesImport = "use super::CanError;"

type (
	// FileStyle selects whether a generated file carries its own copy of the
	// common types or imports them from the index.
	FileStyle struct {
		commonTypesImport string
	}

	// Config is the input of one Engine call. The zero value is a standalone
	// configuration without a unit.
	Config struct {
		unitName    string
		content     []byte
		style       FileStyle
		debugPrints bool
	}
)

// Standalone returns the style of self-contained files.
func Standalone() FileStyle { return FileStyle{} }

// Shared returns the style of files that import the common types with the
// given import line. An empty line yields DefaultCommonTypesImport.
func Shared(importLine string) FileStyle {
	if importLine == "" {
		importLine = DefaultCommonTypesImport
	}
	return FileStyle{commonTypesImport: importLine}
}

// IsShared reports whether files import the common types.
func (s FileStyle) IsShared() bool { return s.commonTypesImport != "" }

// CommonTypesImport returns the import line, or "" for standalone files.
func (s FileStyle) CommonTypesImport() string { return s.commonTypesImport }

// String returns a short label for logs.
func (s FileStyle) String() string {
	if s.IsShared() {
		return "shared"
	}
	return "standalone"
}

// NewConfig returns a base configuration without a unit.
func NewConfig(style FileStyle, debugPrints bool) Config {
	return Config{style: style, debugPrints: debugPrints}
}

// WithUnit returns a copy of c that generates the named unit from content.
// The content slice is not copied and must not be modified afterwards.
func (c Config) WithUnit(name string, content []byte) Config {
	c.unitName = name
	c.content = content
	return c
}

// WithoutUnit returns a copy of c with the unit name and content cleared,
// as used for index rendering.
func (c Config) WithoutUnit() Config {
	c.unitName = ""
	c.content = nil
	return c
}

// UnitName returns the source file name of the unit, or "".
func (c Config) UnitName() string { return c.unitName }

// Content returns the raw unit content.
func (c Config) Content() []byte { return c.content }

// Style returns the file style.
func (c Config) Style() FileStyle { return c.style }

// DebugPrints reports whether generated types get Debug implementations.
func (c Config) DebugPrints() bool { return c.debugPrints }
