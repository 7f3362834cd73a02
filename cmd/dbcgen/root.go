// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/dbcgen/dbcgen/internal/config"
	"github.com/dbcgen/dbcgen/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	verbose bool
	cfgFile string
}

// loadOptions returns the config lookup for this invocation.
func (g *globalFlags) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: g.cfgFile}
}

// NewRootCommand builds the dbcgen command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	global := &globalFlags{}
	batchFlags := &generateFlags{}

	rootCmd := &cobra.Command{
		Use:   "dbcgen <dbc-path> <out-dir> [module-file]",
		Short: "Generate Rust modules from CAN database files",
		Long: TitleStyle.Render("dbcgen") + SubtitleStyle.Render(" - Generate Rust modules from CAN database files") + `

dbcgen reads a single .dbc file, or every .dbc file below a directory, and
writes one Rust module per file into an existing output directory. Module
names are derived from file names. When a module file is given, it declares
every generated module and holds the types they share. A relative module file
is placed in the output directory; an absolute one is written where it points.

A file that fails to parse or generate is reported and skipped; the rest of
the batch is still written.

` + SubtitleStyle.Render("Examples:") + `
  dbcgen vehicle.dbc src/can                Generate src/can/vehicle.rs
  dbcgen dbc/ src/can mod.rs                Generate every module plus src/can/mod.rs
  dbcgen --watch dbc/ src/can mod.rs        Regenerate whenever a .dbc file changes
  dbcgen list dbc/                          Show what a batch would pick up
  dbcgen config show                        Show current configuration`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := generateRequest{
				InputPath: args[0],
				OutDir:    args[1],
				Verbose:   global.verbose,
				Load:      global.loadOptions(),
			}
			if len(args) == 3 {
				req.IndexName = args[2]
			}
			return runGenerate(cmd, app, req, batchFlags)
		},
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&global.cfgFile, "config", "", "config file (default is $HOME/.config/dbcgen/config.cue)")
	batchFlags.register(rootCmd)

	rootCmd.AddCommand(newListCommand(app, global))
	rootCmd.AddCommand(newConfigCommand(app, global))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(types.ExitSoftware))
	}

	slog.SetDefault(newLogger(os.Stderr, false))

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err = fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	)
	if code := exitCodeOf(err); !code.IsSuccess() {
		os.Exit(int(code))
	}
}

// errorHandler prints errors that were not already reported by a command.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// exitCodeOf maps the error returned by the command tree to a process exit
// code. Errors that are not an ExitError come from argument or flag parsing.
func exitCodeOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return types.ExitInterrupted
	}
	return types.ExitUsage
}
