// SPDX-License-Identifier: MPL-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/dbcgen/dbcgen/internal/codegen"
	"github.com/dbcgen/dbcgen/internal/discovery"
	"github.com/dbcgen/dbcgen/internal/naming"
	"github.com/dbcgen/dbcgen/internal/testutil"
)

var errBroken = errors.New("unsupported construct")

// fakeEngine writes "<unit>:<content>" and fails on content "broken".
type fakeEngine struct {
	mu         sync.Mutex
	units      []string
	indexCalls []string
	indexErr   error
	// partial makes failing units write some bytes before failing.
	partial bool
}

func (e *fakeEngine) Generate(cfg codegen.Config, w io.Writer) error {
	e.mu.Lock()
	e.units = append(e.units, cfg.UnitName())
	e.mu.Unlock()

	if string(cfg.Content()) == "broken" {
		if e.partial {
			_, _ = io.WriteString(w, "half a file")
		}
		return fmt.Errorf("generate %s: %w", cfg.UnitName(), errBroken)
	}
	_, err := fmt.Fprintf(w, "%s:%s:%s", cfg.Style(), cfg.UnitName(), cfg.Content())
	return err
}

func (e *fakeEngine) GenerateIndex(cfg codegen.Config, declarations string, w io.Writer) error {
	e.mu.Lock()
	e.indexCalls = append(e.indexCalls, declarations)
	e.mu.Unlock()

	if cfg.UnitName() != "" || cfg.Content() != nil {
		return errors.New("index rendered with a unit")
	}
	if e.indexErr != nil {
		return e.indexErr
	}
	_, err := io.WriteString(w, declarations)
	return err
}

// writeUnits creates files under dir and returns them as units in the
// given order.
func writeUnits(t *testing.T, dir string, files ...[2]string) []discovery.SourceUnit {
	t.Helper()
	units := make([]discovery.SourceUnit, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f[0])
		testutil.MustWriteFile(t, path, []byte(f[1]))
		units = append(units, discovery.SourceUnit{Path: path, Name: filepath.Base(path)})
	}
	return units
}

func newProcessor(t *testing.T, engine codegen.Engine, opts Options) *Processor {
	t.Helper()
	p, err := New(engine, codegen.NewConfig(codegen.Standalone(), false), opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestRun_IsolatesFailures(t *testing.T) {
	t.Parallel()

	for _, jobs := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			t.Parallel()

			src := t.TempDir()
			out := t.TempDir()
			units := writeUnits(t, src,
				[2]string{"engine.dbc", "ok"},
				[2]string{"broken.dbc", "broken"},
				[2]string{"BodyControl.dbc", "ok"},
				[2]string{"2fast.dbc", "ok"},
				[2]string{"z_last.dbc", "ok"},
			)
			engine := &fakeEngine{partial: true}

			res, err := newProcessor(t, engine, Options{OutDir: out, Jobs: jobs}).Run(context.Background(), units)
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}

			want := []naming.ModuleIdentifier{"engine", "body_control", "z_last"}
			if !slices.Equal(res.Modules, want) {
				t.Errorf("Modules = %v, want %v", res.Modules, want)
			}
			if res.Attempted != 5 || res.Skipped() != 2 {
				t.Errorf("Attempted = %d, Skipped = %d, want 5 and 2", res.Attempted, res.Skipped())
			}

			if got := testutil.ListFiles(t, out); !slices.Equal(got, []string{"body_control.rs", "engine.rs", "z_last.rs"}) {
				t.Errorf("output files = %v", got)
			}

			if len(res.Failures) != 2 {
				t.Fatalf("Failures = %v, want 2", res.Failures)
			}
			broken, digit := res.Failures[0], res.Failures[1]
			if broken.Stage != StageGenerate || !errors.Is(broken, errBroken) || broken.Unit.Name != "broken.dbc" {
				t.Errorf("Failures[0] = %+v, want generate failure of broken.dbc", broken)
			}
			if digit.Stage != StageDerive || !errors.Is(digit, naming.ErrInvalidModuleIdentifier) {
				t.Errorf("Failures[1] = %+v, want derive failure", digit)
			}
			// Units with an invalid identifier never reach the engine.
			if slices.Contains(engine.units, "2fast.dbc") {
				t.Error("engine was called for a unit without a valid identifier")
			}
		})
	}
}

func TestRun_WritesGeneratedContent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src, [2]string{"Engine.dbc", "payload"})

	if _, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, OutputExtension: ".txt"}).Run(context.Background(), units); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "engine.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if got := string(data); got != "standalone:Engine.dbc:payload" {
		t.Errorf("output = %q", got)
	}
	info, err := os.Stat(filepath.Join(out, "engine.txt"))
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode().Perm() != outputFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(outputFileMode))
	}
}

func TestRun_FailedUnitKeepsExistingOutput(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(out, "engine.rs"), []byte("previous run"))
	units := writeUnits(t, src, [2]string{"engine.dbc", "broken"})

	res, err := newProcessor(t, &fakeEngine{partial: true}, Options{OutDir: out}).Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(res.Modules) != 0 {
		t.Errorf("Modules = %v, want none", res.Modules)
	}
	data, err := os.ReadFile(filepath.Join(out, "engine.rs"))
	if err != nil || string(data) != "previous run" {
		t.Errorf("existing output changed: %q, %v", data, err)
	}
	if got := testutil.ListFiles(t, out); !slices.Equal(got, []string{"engine.rs"}) {
		t.Errorf("temporary files left behind: %v", got)
	}
}

func TestRun_UnreadableUnit(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src, [2]string{"a.dbc", "ok"})
	units = append(units, discovery.SourceUnit{Path: filepath.Join(src, "gone.dbc"), Name: "gone.dbc"})
	units = append(units, writeUnits(t, src, [2]string{"b.dbc", "ok"})...)

	res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out}).Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !slices.Equal(res.Modules, []naming.ModuleIdentifier{"a", "b"}) {
		t.Errorf("Modules = %v, want [a b]", res.Modules)
	}
	if len(res.Failures) != 1 || res.Failures[0].Stage != StageRead || !errors.Is(res.Failures[0], os.ErrNotExist) {
		t.Fatalf("Failures = %v, want one read failure", res.Failures)
	}
	if !strings.Contains(res.Failures[0].Error(), "gone.dbc") {
		t.Errorf("failure %q does not name the unit", res.Failures[0].Error())
	}
}

func TestRun_OutputDirInvalid(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	units := writeUnits(t, src, [2]string{"a.dbc", "ok"})
	file := filepath.Join(src, "a.dbc")

	tests := map[string]string{
		"missing":   filepath.Join(src, "missing"),
		"not a dir": file,
		"empty":     "",
	}
	for name, dir := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			engine := &fakeEngine{}
			_, err := newProcessor(t, engine, Options{OutDir: dir}).Run(context.Background(), units)
			if !errors.Is(err, ErrOutputDirInvalid) {
				t.Fatalf("Run() error = %v, want ErrOutputDirInvalid", err)
			}
			var dirErr *OutputDirError
			if !errors.As(err, &dirErr) || dirErr.Path != dir {
				t.Errorf("error does not carry the directory: %v", err)
			}
			if len(engine.units) != 0 {
				t.Errorf("engine called %d times, want 0", len(engine.units))
			}
		})
	}
}

func TestRun_Collisions(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (string, []discovery.SourceUnit) {
		t.Helper()
		src := t.TempDir()
		return t.TempDir(), writeUnits(t, src,
			[2]string{"EngineData.dbc", "first"},
			[2]string{"other.dbc", "ok"},
			[2]string{"sub/engine_data.dbc", "second"},
			[2]string{"sub/engine-data.dbc", "third"},
		)
	}

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		out, units := setup(t)
		engine := &fakeEngine{}

		_, err := newProcessor(t, engine, Options{OutDir: out}).Run(context.Background(), units)
		if !errors.Is(err, ErrModuleCollision) {
			t.Fatalf("Run() error = %v, want ErrModuleCollision", err)
		}
		var collErr *CollisionError
		if !errors.As(err, &collErr) || len(collErr.Collisions) != 1 {
			t.Fatalf("error = %#v, want one collision", err)
		}
		if c := collErr.Collisions[0]; c.Module != "engine_data" || len(c.Paths) != 3 {
			t.Errorf("collision = %+v", c)
		}
		if got := testutil.ListFiles(t, out); len(got) != 0 {
			t.Errorf("files written despite collision: %v", got)
		}
		if len(engine.units) != 0 {
			t.Errorf("engine called %d times, want 0", len(engine.units))
		}
	})

	t.Run("skip", func(t *testing.T) {
		t.Parallel()
		out, units := setup(t)

		res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, Collision: CollisionPolicySkip}).Run(context.Background(), units)
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
		if !slices.Equal(res.Modules, []naming.ModuleIdentifier{"engine_data", "other"}) {
			t.Errorf("Modules = %v", res.Modules)
		}
		if res.Skipped() != 2 {
			t.Fatalf("Skipped() = %d, want 2", res.Skipped())
		}
		for _, f := range res.Failures {
			if f.Stage != StageCollision || !errors.Is(f, ErrModuleCollision) {
				t.Errorf("failure = %+v, want collision", f)
			}
		}
		data, err := os.ReadFile(filepath.Join(out, "engine_data.rs"))
		if err != nil || !strings.HasSuffix(string(data), ":first") {
			t.Errorf("engine_data.rs = %q, %v; want the first unit", data, err)
		}
	})
}

func TestRun_ModuleWouldOverwriteIndex(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src, [2]string{"Index.dbc", "ok"}, [2]string{"a.dbc", "ok"})

	_, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, IndexName: "index.rs"}).Run(context.Background(), units)
	if !errors.Is(err, ErrModuleCollision) {
		t.Fatalf("Run() error = %v, want ErrModuleCollision", err)
	}

	res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, IndexName: "index.rs", Collision: CollisionPolicySkip}).Run(context.Background(), units)
	if err != nil {
		t.Fatalf("Run(skip) error: %v", err)
	}
	if !slices.Equal(res.Modules, []naming.ModuleIdentifier{"a"}) {
		t.Errorf("Modules = %v, want [a]", res.Modules)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	for _, jobs := range []int{1, 3} {
		t.Run(fmt.Sprintf("jobs=%d", jobs), func(t *testing.T) {
			t.Parallel()
			src := t.TempDir()
			out := t.TempDir()
			units := writeUnits(t, src, [2]string{"a.dbc", "ok"}, [2]string{"b.dbc", "ok"})

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out, Jobs: jobs}).Run(ctx, units)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Run() error = %v, want context.Canceled", err)
			}
			if len(res.Modules) != 0 {
				t.Errorf("Modules = %v, want none", res.Modules)
			}
			if got := testutil.ListFiles(t, out); len(got) != 0 {
				t.Errorf("files written after cancellation: %v", got)
			}
		})
	}
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()

	res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: t.TempDir()}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(res.Modules) != 0 || res.Attempted != 0 || res.Skipped() != 0 {
		t.Errorf("Result = %+v, want empty", res)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, codegen.Config{}, Options{}); err == nil {
		t.Error("New(nil engine) expected error")
	}
	_, err := New(&fakeEngine{}, codegen.Config{}, Options{Collision: "overwrite"})
	if !errors.Is(err, ErrInvalidCollisionPolicy) {
		t.Errorf("New(bad policy) error = %v, want ErrInvalidCollisionPolicy", err)
	}
}

func TestFailure_Detail(t *testing.T) {
	t.Parallel()

	cause := errors.New("line 3: expected \":\"")
	f := Failure{
		Unit:  discovery.SourceUnit{Path: "/src/a.dbc", Name: "a.dbc"},
		Stage: StageGenerate,
		Err:   fmt.Errorf("parse a.dbc: %w", cause),
	}

	if got := f.Detail(false); got != "parse a.dbc: line 3: expected \":\"" {
		t.Errorf("Detail(false) = %q", got)
	}
	if got := f.Detail(true); !strings.Contains(got, "\n  caused by: line 3") {
		t.Errorf("Detail(true) = %q, want the cause chain", got)
	}
	if got := f.Error(); !strings.HasPrefix(got, "/src/a.dbc: ") {
		t.Errorf("Error() = %q, want the unit path first", got)
	}
}

func TestRun_CommitFailureKeepsEarlierFailures(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	out := t.TempDir()
	units := writeUnits(t, src, [2]string{"a.dbc", "broken"}, [2]string{"b.dbc", "ok"})
	// A non-empty directory at the destination makes the rename fail.
	testutil.WriteTree(t, out, map[string]string{"b.rs/keep": "x"})

	res, err := newProcessor(t, &fakeEngine{}, Options{OutDir: out}).Run(context.Background(), units)

	var destErr *DestinationError
	if !errors.As(err, &destErr) || !errors.Is(err, ErrCreateDestination) {
		t.Fatalf("Run() error = %v, want a DestinationError", err)
	}
	if destErr.Op != "rename" || destErr.Path != filepath.Join(out, "b.rs") {
		t.Errorf("DestinationError = %+v, want rename of b.rs", destErr)
	}
	if !strings.HasPrefix(destErr.Error(), "rename ") {
		t.Errorf("Error() = %q, want it to name the rename step", destErr.Error())
	}
	if len(res.Failures) != 1 || res.Failures[0].Unit.Name != "a.dbc" {
		t.Errorf("Failures = %+v, want the generate failure of a.dbc", res.Failures)
	}
}

func TestDestinationError_Op(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *DestinationError
		want string
	}{
		{&DestinationError{Path: "out/a.rs", Err: os.ErrPermission}, "create out/a.rs: permission denied"},
		{&DestinationError{Op: "sync", Path: "out/a.rs", Err: io.ErrShortWrite}, "sync out/a.rs: short write"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
