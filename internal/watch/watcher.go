// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce lets an editor's write-then-rename settle into one event burst.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores never trigger a rerun. ".*.tmp" covers the temporary files
// outputs are staged in before they are renamed into place.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.*.tmp",
}

// ErrRunTwice is returned when Run is called on a Watcher that already ran.
var ErrRunTwice = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory to watch. Empty means the working directory.
		Root string

		// Patterns are doublestar patterns, relative to Root, that select the
		// files whose changes count. Empty means every non-ignored file.
		Patterns []string

		// Ignore are extra doublestar patterns that never count.
		Ignore []string

		// ExcludeDirs are directory base names that are not watched, compared
		// case-insensitively.
		ExcludeDirs []string

		// Debounce is the quiet period after the last event before OnChange
		// is called. Zero or negative means defaultDebounce.
		Debounce time.Duration

		// OnChange receives the changed paths, relative to Root and sorted.
		// It is never called concurrently with itself.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives watcher records. Nil means slog.Default().
		Logger *slog.Logger
	}

	// Watcher fires a debounced callback when matching files below its root
	// change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *slog.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every directory below Root that is
// neither ignored nor excluded.
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	// Invalid globs fail here rather than silently never matching.
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		root:     absRoot,
	}

	if err := w.addDirectories(); err != nil {
		return nil, errors.Join(err, fsw.Close())
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrRunTwice
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run from time.AfterFunc after ctx is done; the callback gets
	// ctx and must check it itself.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, postponing")
			// Retry so the pending set is not lost when no further event arrives.
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rerun failed", "error", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("failed to close file watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}

			// New directories extend the watch before any filtering.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			rel := w.rel(evt.Name)
			if w.isIgnored(rel) || !w.matchesPatterns(rel) {
				continue
			}
			w.logger.Debug("file changed", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// addDirectories registers Root and every directory below it. Pattern
// filtering happens when events arrive.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			w.logger.Warn("not watching inaccessible path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", w.root, walkErr)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

// skipDir reports whether the directory at path is excluded or ignored.
func (w *Watcher) skipDir(path string) bool {
	base := filepath.Base(path)
	for _, dir := range w.cfg.ExcludeDirs {
		if strings.EqualFold(base, dir) {
			return true
		}
	}
	rel := w.rel(path)
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isIgnored reports whether rel matches an ignore pattern or lies in an
// excluded directory.
func (w *Watcher) isIgnored(rel string) bool {
	if matchAny(w.ignores, rel) {
		return true
	}
	if len(w.cfg.ExcludeDirs) == 0 {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments[:len(segments)-1] {
		for _, dir := range w.cfg.ExcludeDirs {
			if strings.EqualFold(seg, dir) {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
