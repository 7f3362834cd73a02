// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/dbcgen/dbcgen/internal/codegen"
	"github.com/dbcgen/dbcgen/internal/config"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra command handler receives an App reference and reads
	// configuration and the code generator through it.
	App struct {
		Config ConfigProvider
		Engine codegen.Engine
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp. Tests can supply their own
	// implementations to isolate specific behavior.
	Dependencies struct {
		Config ConfigProvider
		Engine codegen.Engine
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (config.Loaded, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engine == nil {
		deps.Engine = codegen.NewRustEngine()
	}

	return &App{
		Config: deps.Config,
		Engine: deps.Engine,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}
