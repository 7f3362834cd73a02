// SPDX-License-Identifier: MPL-2.0

// Package naming derives module identifiers from description file names.
//
// A module identifier is used twice in the generated output: as the base name of
// the generated source file and as the symbol declared by the module index. It
// must therefore be valid as both, which for the Rust target means a lowercase
// snake_case identifier that is not a reserved word.
package naming
