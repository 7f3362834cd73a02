// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

type (
	// walker holds the state of one directory traversal.
	walker struct {
		suffix         string
		exclude        map[string]struct{}
		followSymlinks bool
		// visited holds resolved directory paths, used only when following
		// symlinks so that link cycles terminate.
		visited map[string]struct{}
		result  Result
	}

	// pending is one worklist item: a directory still to be listed or a
	// file already known to be a unit.
	pending struct {
		path string
		dir  bool
	}
)

func newWalker(opts Options) *walker {
	exclude := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		name = strings.Trim(name, `/\`)
		if name == "" {
			continue
		}
		exclude[strings.ToLower(name)] = struct{}{}
	}
	return &walker{
		suffix:         "." + opts.ext(),
		exclude:        exclude,
		followSymlinks: opts.FollowSymlinks,
		visited:        make(map[string]struct{}),
	}
}

// walk lists root and then drains the worklist. Children are pushed in reverse
// lexical order so that popping yields the same pre-order a recursive walk
// would produce, without growing the call stack on deep trees.
func (w *walker) walk(root string) (Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Result{}, &RootUnreadableError{Path: root, Err: err}
	}
	w.markVisited(root)

	stack := w.push(nil, root, entries)
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !item.dir {
			w.result.Units = append(w.result.Units, newUnit(item.path))
			continue
		}

		if w.followSymlinks && w.markVisited(item.path) {
			w.warn(CodeSymlinkCycle, item.path, nil,
				fmt.Sprintf("skipping %s: directory already visited", item.path))
			continue
		}

		entries, err := os.ReadDir(item.path)
		if err != nil {
			w.warn(CodeEntryUnreadable, item.path, err,
				fmt.Sprintf("cannot read directory %s: %v", item.path, err))
			// os.ReadDir may still return the entries read before the failure.
			if len(entries) == 0 {
				continue
			}
		}
		stack = w.push(stack, item.path, entries)
	}

	return w.result, nil
}

// push classifies the entries of dir and appends the relevant ones to stack
// in reverse order.
func (w *walker) push(stack []pending, dir string, entries []fs.DirEntry) []pending {
	items := make([]pending, 0, len(entries))
	for _, entry := range entries {
		if item, ok := w.classify(dir, entry); ok {
			items = append(items, item)
		}
	}
	slices.Reverse(items)
	return append(stack, items...)
}

// classify decides whether entry is a directory to descend, a unit, or neither.
func (w *walker) classify(dir string, entry fs.DirEntry) (pending, bool) {
	path := filepath.Join(dir, entry.Name())
	mode := entry.Type()

	if mode&fs.ModeSymlink != 0 {
		target, err := os.Stat(path)
		if err != nil {
			w.warn(CodeEntryUnreadable, path, err,
				fmt.Sprintf("cannot resolve symlink %s: %v", path, err))
			return pending{}, false
		}
		if target.IsDir() {
			if !w.followSymlinks {
				slog.Debug("not following symlinked directory", "path", path)
				return pending{}, false
			}
			return pending{path: path, dir: true}, !w.excluded(entry.Name())
		}
		mode = target.Mode().Type()
	}

	switch {
	case mode.IsDir():
		if w.excluded(entry.Name()) {
			slog.Debug("skipping excluded directory", "path", path)
			return pending{}, false
		}
		return pending{path: path, dir: true}, true
	case mode.IsRegular():
		return pending{path: path}, filepath.Ext(entry.Name()) == w.suffix
	default:
		return pending{}, false
	}
}

func (w *walker) excluded(name string) bool {
	_, ok := w.exclude[strings.ToLower(name)]
	return ok
}

// markVisited records the resolved form of dir and reports whether it had
// already been recorded.
func (w *walker) markVisited(dir string) bool {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if _, seen := w.visited[resolved]; seen {
		return true
	}
	w.visited[resolved] = struct{}{}
	return false
}

func (w *walker) warn(code, path string, cause error, msg string) {
	w.result.Diagnostics = append(w.result.Diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  msg,
		Path:     path,
		Cause:    cause,
	})
}
