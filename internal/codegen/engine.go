// SPDX-License-Identifier: MPL-2.0

package codegen

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNoMessages is returned when a database defines no messages.
	ErrNoMessages = errors.New("database defines no messages")
	// ErrInvalidLayout is returned for signals that do not fit their message.
	ErrInvalidLayout = errors.New("invalid signal layout")
	// ErrNameConflict is returned when two definitions map to the same generated item.
	ErrNameConflict = errors.New("conflicting generated names")
	// ErrInvalidDeclarations is returned when index declarations are malformed.
	ErrInvalidDeclarations = errors.New("invalid module declarations")
)

type (
	// Engine renders generated source.
	Engine interface {
		// Generate renders the unit carried by cfg into w.
		Generate(cfg Config, w io.Writer) error
		// GenerateIndex renders the aggregating file for the given module
		// declarations into w. cfg carries no unit.
		GenerateIndex(cfg Config, declarations string, w io.Writer) error
	}

	// DefinitionError locates a generation failure inside the database.
	DefinitionError struct {
		Line int
		Item string
		Err  error
	}
)

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Item, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

// Unwrap returns the underlying error.
func (e *DefinitionError) Unwrap() error { return e.Err }
