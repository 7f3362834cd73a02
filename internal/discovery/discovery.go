// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is the extension of network database description files.
const DefaultExtension = "dbc"

// ErrRootUnreadable is returned when the input root cannot be read at all.
var ErrRootUnreadable = errors.New("input path is not readable")

type (
	// SourceUnit is one description file found by Discover.
	SourceUnit struct {
		// Path is the absolute path to the file.
		Path string
		// Name is the file's base name as seen at discovery time.
		Name string
	}

	// Options controls which files a directory walk collects.
	Options struct {
		// Extension is matched (case-sensitively, without the dot) against
		// file names inside directories. Empty means DefaultExtension.
		Extension string
		// ExcludeDirs lists directory base names that are never descended.
		// Matching is case-insensitive. The root itself is never excluded.
		ExcludeDirs []string
		// FollowSymlinks descends into symlinked directories. Symlinks to
		// regular files are always collected.
		FollowSymlinks bool
	}

	// Result is the ordered list of units plus non-fatal diagnostics.
	Result struct {
		Units       []SourceUnit
		Diagnostics []Diagnostic
	}

	// RootUnreadableError reports why the input root could not be read.
	// It matches ErrRootUnreadable and the underlying cause with errors.Is.
	RootUnreadableError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *RootUnreadableError) Error() string {
	return fmt.Sprintf("cannot read input path %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *RootUnreadableError) Unwrap() []error {
	return []error{ErrRootUnreadable, e.Err}
}

// ext returns the configured extension without a leading dot.
func (o Options) ext() string {
	ext := strings.TrimPrefix(o.Extension, ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// Discover returns the units found at root.
//
// If root is a regular file (or a symlink to one) it is the only unit. If it is
// a directory, every regular file with the configured extension below it is
// returned in depth-first lexical order. The returned error is non-nil only when
// root itself cannot be read; everything else is reported in Result.Diagnostics.
func Discover(root string, opts Options) (Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Result{}, &RootUnreadableError{Path: root, Err: err}
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return Result{}, &RootUnreadableError{Path: absRoot, Err: err}
	}

	switch {
	case info.Mode().IsRegular():
		return Result{Units: []SourceUnit{newUnit(absRoot)}}, nil
	case info.IsDir():
		return newWalker(opts).walk(absRoot)
	default:
		return Result{}, &RootUnreadableError{
			Path: absRoot,
			Err:  fmt.Errorf("not a regular file or directory (mode %s)", info.Mode().Type()),
		}
	}
}

func newUnit(path string) SourceUnit {
	return SourceUnit{Path: path, Name: filepath.Base(path)}
}
