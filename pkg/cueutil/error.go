// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// ErrFileTooLarge is returned by CheckFileSize.
var ErrFileTooLarge = stderrors.New("file too large")

type (
	// ValidationError reports every problem CUE found in one file.
	ValidationError struct {
		// FilePath is the file being validated.
		FilePath string

		// Issues are the individual problems, in CUE's order.
		Issues []ValidationIssue
	}

	// ValidationIssue is one problem at one field.
	ValidationIssue struct {
		// Path is the JSON path to the invalid value (e.g., "generate.jobs").
		Path string

		// Message is the validation error message.
		Message string
	}
)

// Error implements the error interface.
//
// Format: <file-path>: <json-path>: <message>, with one issue per line when
// there are several.
func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(lines, "\n  "))
}

// String returns "<path>: <message>", or the message alone at the root.
func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// FormatError converts a CUE error into a *ValidationError with JSON path
// prefixes. Errors that do not come from CUE are wrapped with the file path.
//
// Examples:
//   - config.cue: generate.jobs: invalid value -1 (out of bound >=0)
//   - config.cue: generate.collision: 2 errors in empty disjunction
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	verr := &ValidationError{FilePath: filePath}
	for _, e := range cueErrors {
		path := formatPath(errors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path at the start of the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		verr.Issues = append(verr.Issues, ValidationIssue{Path: path, Message: msg})
	}
	return verr
}

// formatPath converts a CUE error path (e.g. ["exclude_dirs", "0"]) to
// JSON-path notation ("exclude_dirs[0]").
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		isIndex := part != ""
		for _, c := range part {
			if c < '0' || c > '9' {
				isIndex = false
				break
			}
		}

		switch {
		case isIndex && i > 0:
			result.WriteString("[" + part + "]")
		case i > 0:
			result.WriteString("." + part)
		default:
			result.WriteString(part)
		}
	}
	return result.String()
}

// CheckFileSize returns an error wrapping ErrFileTooLarge if data exceeds
// maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: %w: %d bytes exceeds maximum %d bytes",
			filename, ErrFileTooLarge, len(data), maxSize)
	}
	return nil
}
