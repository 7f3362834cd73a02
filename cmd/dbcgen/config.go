// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbcgen/dbcgen/internal/config"
	"github.com/dbcgen/dbcgen/pkg/types"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// newConfigCommand creates the `dbcgen config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, global *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dbcgen configuration",
		Long: `Manage dbcgen configuration.

Configuration is read from the first of:
  - the file given with --config
  - Linux: ~/.config/dbcgen/config.cue
    macOS: ~/Library/Application Support/dbcgen/config.cue
    Windows: %APPDATA%\dbcgen\config.cue
  - dbcgen.cue in the working directory

Every value can be overridden with a DBCGEN_<SECTION>_<FIELD> environment
variable, for example DBCGEN_GENERATE_JOBS=4.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, global)
		},
	})

	var format string
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpConfig(cmd.Context(), app, global, format)
		},
	}
	dumpCmd.Flags().StringVar(&format, "format", formatCUE, "output format (cue, toml)")
	cfgCmd.AddCommand(dumpCmd)

	var dir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig(dir)
			if err != nil {
				fmt.Fprintln(app.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
				return &ExitError{Code: types.ExitCantCreate, Err: err}
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&dir, "dir", "", "directory to write config.cue into (default is the user config directory)")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app, global)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, global *globalFlags) error {
	loaded, err := app.Config.Load(ctx, global.loadOptions())
	if err != nil {
		return reportConfigError(app.stderr, err, global.verbose)
	}
	cfg := loaded.Config
	w := app.stdout

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if loaded.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	g := cfg.Generate
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("generate"))
	fmt.Fprintf(w, "  extension: %s\n", valueStyle.Render(g.Extension.String()))
	fmt.Fprintf(w, "  output_extension: %s\n", valueStyle.Render(g.OutputExtension.String()))
	fmt.Fprintf(w, "  common_types_import: %s\n", valueStyle.Render(g.ImportLine()))
	fmt.Fprintf(w, "  debug_prints: %s\n", valueStyle.Render(fmt.Sprintf("%v", g.DebugPrints)))
	fmt.Fprintf(w, "  jobs: %s\n", valueStyle.Render(fmt.Sprintf("%d", g.Jobs)))
	fmt.Fprintf(w, "  collision: %s\n", valueStyle.Render(g.Collision.String()))
	if len(g.ExcludeDirs) == 0 {
		fmt.Fprintf(w, "  exclude_dirs: %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		fmt.Fprintf(w, "  exclude_dirs: %s\n", valueStyle.Render(strings.Join(g.ExcludeDirs, ", ")))
	}
	fmt.Fprintf(w, "  follow_symlinks: %s\n", valueStyle.Render(fmt.Sprintf("%v", g.FollowSymlinks)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	fmt.Fprintf(w, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))

	return nil
}

func dumpConfig(ctx context.Context, app *App, global *globalFlags, format string) error {
	loaded, err := app.Config.Load(ctx, global.loadOptions())
	if err != nil {
		return reportConfigError(app.stderr, err, global.verbose)
	}

	switch format {
	case formatCUE:
		fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
	case formatTOML:
		out, err := config.GenerateTOML(loaded.Config)
		if err != nil {
			fmt.Fprintln(app.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
			return &ExitError{Code: types.ExitSoftware, Err: err}
		}
		fmt.Fprint(app.stdout, out)
	default:
		err := fmt.Errorf("unknown format %q (expected %s or %s)", format, formatCUE, formatTOML)
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		return &ExitError{Code: types.ExitUsage, Err: err}
	}
	return nil
}

func showConfigPath(app *App, global *globalFlags) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		return &ExitError{Code: types.ExitConfig, Err: err}
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)

	active, err := config.ResolvePath(global.loadOptions())
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error:")+" "+err.Error())
		return &ExitError{Code: types.ExitConfig, Err: err}
	}
	if active == "" {
		fmt.Fprintf(app.stdout, "Config file: %s\n", SubtitleStyle.Render("(none, using defaults)"))
		return nil
	}
	fmt.Fprintf(app.stdout, "Config file: %s\n", active)
	return nil
}
