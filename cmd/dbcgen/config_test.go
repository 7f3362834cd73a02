// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/dbcgen/dbcgen/internal/config"
	"github.com/dbcgen/dbcgen/internal/testutil"
	"github.com/dbcgen/dbcgen/pkg/types"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Generate.Jobs = 6
	cfg.Generate.ExcludeDirs = []string{".git", "vendor"}

	res := runCLI(t, &fakeProvider{cfg: cfg}, &fakeEngine{}, "config", "show")
	if res.err != nil {
		t.Fatalf("config show failed: %v", res.err)
	}
	for _, want := range []string{"Current Configuration", "(using defaults)", "jobs: 6", "exclude_dirs: .git, vendor", "collision: error", "color_scheme: auto"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	t.Run("cue", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, &fakeProvider{}, &fakeEngine{}, "config", "dump")
		if res.err != nil {
			t.Fatalf("config dump failed: %v", res.err)
		}
		if !strings.Contains(res.stdout, "generate: {") || !strings.Contains(res.stdout, `collision: "error"`) {
			t.Errorf("unexpected CUE output:\n%s", res.stdout)
		}
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, &fakeProvider{}, &fakeEngine{}, "config", "dump", "--format", "toml")
		if res.err != nil {
			t.Fatalf("config dump failed: %v", res.err)
		}
		var decoded config.Config
		if err := toml.Unmarshal([]byte(res.stdout), &decoded); err != nil {
			t.Fatalf("output is not TOML: %v\n%s", err, res.stdout)
		}
		if decoded.Generate.OutputExtension != "rs" {
			t.Errorf("output_extension = %q, want rs", decoded.Generate.OutputExtension)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		res := runCLI(t, &fakeProvider{}, &fakeEngine{}, "config", "dump", "--format", "yaml")
		wantExitCode(t, res.err, types.ExitUsage)
	})
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cfg")

	res := runCLI(t, &fakeProvider{}, &fakeEngine{}, "config", "init", "--dir", dir)
	if res.err != nil {
		t.Fatalf("config init failed: %v", res.err)
	}
	path := filepath.Join(dir, "config.cue")
	if !strings.Contains(res.stdout, path) {
		t.Errorf("stdout should name %s, got %q", path, res.stdout)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	loaded, err := config.NewProvider().Load(t.Context(), config.LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if loaded.Config.Generate.Collision != config.CollisionError {
		t.Errorf("collision = %q, want %q", loaded.Config.Generate.Collision, config.CollisionError)
	}
}

func TestConfigPath(t *testing.T) {
	// Not parallel: mutates HOME and XDG_CONFIG_HOME.
	if runtime.GOOS != "linux" {
		t.Skip("config directory layout checked on Linux only")
	}

	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))
	t.Cleanup(testutil.MustUnsetenv(t, "XDG_CONFIG_HOME"))
	t.Cleanup(testutil.MustChdir(t, t.TempDir()))

	res := runCLI(t, &fakeProvider{}, &fakeEngine{}, "config", "path")
	if res.err != nil {
		t.Fatalf("config path failed: %v", res.err)
	}
	if want := "Config directory: " + filepath.Join(home, ".config", "dbcgen"); !strings.Contains(res.stdout, want) {
		t.Errorf("stdout missing %q:\n%s", want, res.stdout)
	}
	if !strings.Contains(res.stdout, "(none, using defaults)") {
		t.Errorf("stdout should report defaults:\n%s", res.stdout)
	}

	explicit := filepath.Join(t.TempDir(), "custom.cue")
	res = runCLI(t, &fakeProvider{}, &fakeEngine{}, "--config", explicit, "config", "path")
	if res.err != nil {
		t.Fatalf("config path failed: %v", res.err)
	}
	if !strings.Contains(res.stdout, "Config file: "+explicit) {
		t.Errorf("stdout should name the explicit file:\n%s", res.stdout)
	}
}
