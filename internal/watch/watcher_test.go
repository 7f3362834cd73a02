// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

// startWatcher runs w until the test ends and fails the test if Run errors.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancellation")
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitChange(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case changed := <-ch:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu    sync.Mutex
		calls int
	)
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:     dir,
		Patterns: []string{"**/*.dbc"},
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			calls++
			mu.Unlock()
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	for _, name := range []string{"c.dbc", "a.dbc", "b.dbc"} {
		writeFile(t, filepath.Join(dir, name), "BO_ 1 A: 1 X")
		time.Sleep(10 * time.Millisecond)
	}

	changed := waitChange(t, changes)
	if want := []string{"a.dbc", "b.dbc", "c.dbc"}; !slices.Equal(changed, want) {
		t.Errorf("changed = %v, want %v", changed, want)
	}

	time.Sleep(250 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
}

func TestWatcher_PatternAndIgnoreFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:     dir,
		Patterns: []string{"**/*.dbc"},
		Ignore:   []string{"scratch/**"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, w)

	// None of these count: wrong extension, staged output, ignored directory.
	writeFile(t, filepath.Join(dir, "engine.rs"), "// out")
	writeFile(t, filepath.Join(dir, ".engine.rs.123.tmp"), "// staged")
	writeFile(t, filepath.Join(dir, "scratch", "draft.dbc"), "BO_ 1 A: 1 X")
	time.Sleep(200 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "engine.dbc"), "BO_ 1 A: 1 X")

	changed := waitChange(t, changes)
	if !slices.Equal(changed, []string{"engine.dbc"}) {
		t.Errorf("changed = %v, want [engine.dbc]", changed)
	}
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:     dir,
		Patterns: []string{"**/*.dbc"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	sub := filepath.Join(dir, "body")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(sub, "doors.dbc"), "BO_ 1 A: 1 X")

	for {
		changed := waitChange(t, changes)
		if slices.Contains(changed, "body/doors.dbc") {
			return
		}
	}
}

func TestWatcher_ExcludedDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, sub := range []string{"Legacy", "current"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:        dir,
		ExcludeDirs: []string{"legacy"},
		Debounce:    50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "Legacy", "old.dbc"), "x")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "current", "new.dbc"), "x")

	changed := waitChange(t, changes)
	if !slices.Equal(changed, []string{"current/new.dbc"}) {
		t.Errorf("changed = %v, want [current/new.dbc]", changed)
	}
}

func TestWatcher_CallbacksDoNotOverlap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu      sync.Mutex
		active  int
		overlap bool
		calls   int
	)
	firstDone := make(chan struct{})

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			mu.Lock()
			active++
			calls++
			call := calls
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			if call == 1 {
				time.Sleep(300 * time.Millisecond)
				close(firstDone)
			}

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "first.dbc"), "1")
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "second.dbc"), "2")

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first callback")
	}
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("callbacks ran concurrently")
	}
	if calls < 2 {
		t.Errorf("postponed change should rerun once the first callback returns, got %d calls", calls)
	}
}

func TestWatcher_CallbackErrorKeepsWatching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 4)

	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return errors.New("generation failed")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "a.dbc"), "1")
	waitChange(t, changes)
	writeFile(t, filepath.Join(dir, "b.dbc"), "2")
	if changed := waitChange(t, changes); !slices.Contains(changed, "b.dbc") {
		t.Errorf("changed = %v, want b.dbc", changed)
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(context.Background()); !errors.Is(err, ErrRunTwice) {
		t.Errorf("second Run() error = %v, want ErrRunTwice", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"invalid watch pattern", Config{Root: dir, Patterns: []string{"[invalid"}}},
		{"invalid ignore pattern", Config{Root: dir, Ignore: []string{"{a,b"}}},
		{"missing root", Config{Root: filepath.Join(dir, "missing")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("New() should fail")
			}
		})
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	w := &Watcher{ignores: defaultIgnores}

	tests := []struct {
		path    string
		ignored bool
	}{
		{".git/config", true},
		{"sub/.git/HEAD", true},
		{"engine.dbc.swp", true},
		{"engine.dbc~", true},
		{".DS_Store", true},
		{".engine.rs.4242.tmp", true},
		{"out/.mod.rs.1.tmp", true},
		{"engine.dbc", false},
		{"body/doors.dbc", false},
		{".gitignore", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := w.isIgnored(tt.path); got != tt.ignored {
				t.Errorf("isIgnored(%q) = %v, want %v", tt.path, got, tt.ignored)
			}
		})
	}
}
