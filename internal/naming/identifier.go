// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"errors"
	"fmt"
)

// ErrInvalidModuleIdentifier is the sentinel error wrapped by InvalidModuleIdentifierError.
var ErrInvalidModuleIdentifier = errors.New("invalid module identifier")

// reservedWords are Rust keywords (strict, reserved and weak ones that cannot
// name a module without raw-identifier syntax).
var reservedWords = map[string]struct{}{
	"abstract": {}, "as": {}, "async": {}, "await": {}, "become": {}, "box": {},
	"break": {}, "const": {}, "continue": {}, "crate": {}, "do": {}, "dyn": {},
	"else": {}, "enum": {}, "extern": {}, "false": {}, "final": {}, "fn": {},
	"for": {}, "gen": {}, "if": {}, "impl": {}, "in": {}, "let": {}, "loop": {},
	"macro": {}, "match": {}, "mod": {}, "move": {}, "mut": {}, "override": {},
	"priv": {}, "pub": {}, "ref": {}, "return": {}, "self": {}, "static": {},
	"struct": {}, "super": {}, "trait": {}, "true": {}, "try": {}, "type": {},
	"typeof": {}, "unsafe": {}, "unsized": {}, "use": {}, "virtual": {},
	"where": {}, "while": {}, "yield": {},
}

type (
	// ModuleIdentifier is the canonical snake_case name of a generated module.
	// A valid identifier matches [a-z_][a-z0-9_]*, is not "_" and is not a
	// reserved word, so it works as a file base name and as a module symbol.
	ModuleIdentifier string

	// InvalidModuleIdentifierError is returned when a ModuleIdentifier cannot
	// be used as a module name. It wraps ErrInvalidModuleIdentifier.
	InvalidModuleIdentifierError struct {
		Value  ModuleIdentifier
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidModuleIdentifierError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid module identifier: %s", e.Reason)
	}
	return fmt.Sprintf("invalid module identifier %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidModuleIdentifier for errors.Is() compatibility.
func (e *InvalidModuleIdentifierError) Unwrap() error { return ErrInvalidModuleIdentifier }

// IsReserved reports whether s is a Rust keyword.
func IsReserved(s string) bool {
	_, ok := reservedWords[s]
	return ok
}

// String returns the identifier as a plain string.
func (m ModuleIdentifier) String() string { return string(m) }

// FileName returns the generated file name for this module.
func (m ModuleIdentifier) FileName(ext string) string {
	return string(m) + "." + ext
}

// IsValid returns whether the identifier can be used as a module name,
// and a list of validation errors if it cannot.
func (m ModuleIdentifier) IsValid() (bool, []error) {
	if reason := m.invalidReason(); reason != "" {
		return false, []error{&InvalidModuleIdentifierError{Value: m, Reason: reason}}
	}
	return true, nil
}

func (m ModuleIdentifier) invalidReason() string {
	s := string(m)
	if s == "" {
		return "file name contains no letters or digits"
	}
	if s == "_" {
		return "identifier consists only of an underscore"
	}
	if c := s[0]; c >= '0' && c <= '9' {
		return "identifier starts with a digit"
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return "identifier contains non-ASCII characters"
		}
	}
	if _, reserved := reservedWords[s]; reserved {
		return "identifier is a reserved word"
	}
	return ""
}
