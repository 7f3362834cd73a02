// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/dbcgen/dbcgen/internal/naming"
	"github.com/dbcgen/dbcgen/internal/testutil"
)

func TestDeclarations(t *testing.T) {
	t.Parallel()

	if got := Declarations(nil); got != "" {
		t.Errorf("Declarations(nil) = %q, want empty", got)
	}
	got := Declarations([]naming.ModuleIdentifier{"engine", "body"})
	if want := "pub mod engine;\npub mod body;"; got != want {
		t.Errorf("Declarations() = %q, want %q", got, want)
	}
}

func TestWriteIndex(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	engine := &fakeEngine{}
	p := newProcessor(t, engine, Options{OutDir: out, IndexName: "mod.rs"})

	res := Result{Modules: []naming.ModuleIdentifier{"z_last", "engine"}}
	if err := p.WriteIndex(context.Background(), res); err != nil {
		t.Fatalf("WriteIndex() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "mod.rs"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	// Declarations keep processing order.
	if got, want := string(data), "pub mod z_last;\npub mod engine;"; got != want {
		t.Errorf("index = %q, want %q", got, want)
	}
}

func TestWriteIndex_NotRequested(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	engine := &fakeEngine{}
	p := newProcessor(t, engine, Options{OutDir: out})

	if err := p.WriteIndex(context.Background(), Result{Modules: []naming.ModuleIdentifier{"a"}}); err != nil {
		t.Fatalf("WriteIndex() error: %v", err)
	}
	if len(engine.indexCalls) != 0 {
		t.Error("engine rendered an index that was not requested")
	}
	if got := testutil.ListFiles(t, out); len(got) != 0 {
		t.Errorf("files = %v, want none", got)
	}
}

func TestWriteIndex_EmptyResult(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	engine := &fakeEngine{}
	if err := newProcessor(t, engine, Options{OutDir: out, IndexName: "lib.rs"}).WriteIndex(context.Background(), Result{}); err != nil {
		t.Fatalf("WriteIndex() error: %v", err)
	}
	if !slices.Equal(engine.indexCalls, []string{""}) {
		t.Errorf("index calls = %q, want one empty declaration list", engine.indexCalls)
	}
	if got := testutil.ListFiles(t, out); !slices.Equal(got, []string{"lib.rs"}) {
		t.Errorf("files = %v, want [lib.rs]", got)
	}
}

func TestWriteIndex_RenderFailure(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	cause := errors.New("aggregator broke")
	engine := &fakeEngine{indexErr: cause}

	err := newProcessor(t, engine, Options{OutDir: out, IndexName: "mod.rs"}).WriteIndex(context.Background(), Result{Modules: []naming.ModuleIdentifier{"a"}})
	if !errors.Is(err, ErrIndexRender) || !errors.Is(err, cause) {
		t.Fatalf("WriteIndex() error = %v, want ErrIndexRender wrapping the cause", err)
	}
	var renderErr *IndexRenderError
	if !errors.As(err, &renderErr) || renderErr.Path != filepath.Join(out, "mod.rs") {
		t.Errorf("error does not carry the index path: %v", err)
	}
	if got := testutil.ListFiles(t, out); len(got) != 0 {
		t.Errorf("files = %v, want none after a render failure", got)
	}
}

func TestWriteIndex_MissingDirectory(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, IndexName: filepath.Join("missing", "mod.rs")}).WriteIndex(context.Background(), Result{})
	if !errors.Is(err, ErrCreateDestination) {
		t.Fatalf("WriteIndex() error = %v, want ErrCreateDestination", err)
	}
}

func TestWriteIndex_AbsolutePath(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	elsewhere := filepath.Join(t.TempDir(), "lib.rs")
	p := newProcessor(t, &fakeEngine{}, Options{OutDir: out, IndexName: elsewhere})

	if err := p.WriteIndex(context.Background(), Result{Modules: []naming.ModuleIdentifier{"engine"}}); err != nil {
		t.Fatalf("WriteIndex() error: %v", err)
	}
	data, err := os.ReadFile(elsewhere)
	if err != nil || string(data) != "pub mod engine;" {
		t.Errorf("%s = %q, %v", elsewhere, data, err)
	}
	if got := testutil.ListFiles(t, out); len(got) != 0 {
		t.Errorf("files in out = %v, want none", got)
	}
}

func TestRun_AbsoluteIndexNameCollision(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src, [2]string{"lib.dbc", "ok"})

	p := newProcessor(t, &fakeEngine{}, Options{OutDir: out, IndexName: filepath.Join(out, "lib.rs")})
	if _, err := p.Run(context.Background(), units); !errors.Is(err, ErrModuleCollision) {
		t.Fatalf("Run() error = %v, want ErrModuleCollision", err)
	}
}

func TestRunThenWriteIndex(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src,
		[2]string{"engine.dbc", "ok"},
		[2]string{"broken.dbc", "broken"},
	)

	engine := &fakeEngine{}
	p := newProcessor(t, engine, Options{OutDir: out, IndexName: "mod.rs", Jobs: 2})
	res, err := p.Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := p.WriteIndex(context.Background(), res); err != nil {
		t.Fatalf("WriteIndex() error: %v", err)
	}

	if got := testutil.ListFiles(t, out); !slices.Equal(got, []string{"engine.rs", "mod.rs"}) {
		t.Errorf("files = %v, want [engine.rs mod.rs]", got)
	}
	data, err := os.ReadFile(filepath.Join(out, "mod.rs"))
	if err != nil || string(data) != "pub mod engine;" {
		t.Errorf("mod.rs = %q, %v; want only the generated module", data, err)
	}
}
