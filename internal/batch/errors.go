// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbcgen/dbcgen/internal/naming"
)

var (
	// ErrOutputDirInvalid is returned when the output directory does not
	// exist or is not a directory.
	ErrOutputDirInvalid = errors.New("output directory is invalid")
	// ErrCreateDestination is returned when an output file cannot be created
	// or committed.
	ErrCreateDestination = errors.New("cannot create destination file")
	// ErrIndexRender is returned when the engine fails to render the index.
	ErrIndexRender = errors.New("module index rendering failed")
	// ErrModuleCollision is returned when units map to the same module
	// identifier under CollisionError, or a module would overwrite the index.
	ErrModuleCollision = errors.New("module identifier collision")
	// ErrInvalidCollisionPolicy is returned for unknown collision policies.
	ErrInvalidCollisionPolicy = errors.New("invalid collision policy")
)

type (
	// OutputDirError reports an unusable output directory.
	OutputDirError struct {
		Path string
		Err  error
	}

	// DestinationError reports an output file that could not be created or
	// committed. Op names the failed step: create, write, sync, close, chmod
	// or rename.
	DestinationError struct {
		Op   string
		Path string
		Err  error
	}

	// IndexRenderError reports an engine failure while rendering the index.
	IndexRenderError struct {
		Path string
		Err  error
	}

	// Collision lists the units that derive the same module identifier, in
	// discovery order.
	Collision struct {
		Module naming.ModuleIdentifier
		Paths  []string
	}

	// CollisionError reports every identifier collision found in a batch.
	CollisionError struct {
		Collisions []Collision
	}
)

// Error implements the error interface.
func (e *OutputDirError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("output directory %s: not a directory", e.Path)
	}
	return fmt.Sprintf("output directory %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *OutputDirError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOutputDirInvalid}
	}
	return []error{ErrOutputDirInvalid, e.Err}
}

// Error implements the error interface.
func (e *DestinationError) Error() string {
	op := e.Op
	if op == "" {
		op = "create"
	}
	return fmt.Sprintf("%s %s: %v", op, e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *DestinationError) Unwrap() []error { return []error{ErrCreateDestination, e.Err} }

// Error implements the error interface.
func (e *IndexRenderError) Error() string {
	return fmt.Sprintf("render module index %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *IndexRenderError) Unwrap() []error { return []error{ErrIndexRender, e.Err} }

// Error implements the error interface.
func (e *CollisionError) Error() string {
	var b strings.Builder
	for i, c := range e.Collisions {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "module %q is derived from %s", c.Module, strings.Join(c.Paths, ", "))
	}
	return b.String()
}

// Unwrap returns ErrModuleCollision for errors.Is() compatibility.
func (e *CollisionError) Unwrap() error { return ErrModuleCollision }
