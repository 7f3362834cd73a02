// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFileExtension is the sentinel error wrapped by InvalidFileExtensionError.
var ErrInvalidFileExtension = errors.New("invalid file extension")

type (
	// FileExtension is a file name extension without the leading dot, such
	// as "dbc" or "rs".
	FileExtension string

	// InvalidFileExtensionError is returned when a FileExtension is empty
	// or contains a path separator or whitespace.
	InvalidFileExtensionError struct {
		Value  FileExtension
		Reason string
	}
)

// ParseFileExtension trims one leading dot from s and validates the result.
func ParseFileExtension(s string) (FileExtension, error) {
	ext := FileExtension(strings.TrimPrefix(s, "."))
	if valid, errs := ext.IsValid(); !valid {
		return "", errs[0]
	}
	return ext, nil
}

// String returns the extension without a dot.
func (e FileExtension) String() string { return string(e) }

// IsValid returns whether the FileExtension is valid, and a list of
// validation errors if it is not.
func (e FileExtension) IsValid() (bool, []error) {
	s := string(e)
	var reason string
	switch {
	case s == "":
		reason = "must be non-empty"
	case strings.HasPrefix(s, "."):
		reason = "must not start with a dot"
	case strings.ContainsAny(s, `/\`):
		reason = "must not contain path separators"
	case strings.ContainsAny(s, " \t\r\n"):
		reason = "must not contain whitespace"
	default:
		return true, nil
	}
	return false, []error{&InvalidFileExtensionError{Value: e, Reason: reason}}
}

// Error implements the error interface.
func (e *InvalidFileExtensionError) Error() string {
	return fmt.Sprintf("invalid file extension %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidFileExtension for errors.Is() compatibility.
func (e *InvalidFileExtensionError) Unwrap() error { return ErrInvalidFileExtension }
