// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dbcgen/dbcgen/internal/discovery"
	"github.com/dbcgen/dbcgen/internal/naming"
	"github.com/dbcgen/dbcgen/pkg/types"
)

type (
	// listEntry is one discovered unit and the module it would become.
	listEntry struct {
		Unit   discovery.SourceUnit
		Module naming.ModuleIdentifier
		// Problem explains why the unit would be skipped, or is empty.
		Problem string
	}
)

// newListCommand creates the `dbcgen list` command.
func newListCommand(app *App, global *globalFlags) *cobra.Command {
	var (
		extension      string
		exclude        []string
		followSymlinks bool
	)

	listCmd := &cobra.Command{
		Use:   "list <dbc-path>",
		Short: "List the files a batch would generate and their module names",
		Long: `List the files a batch would generate and their module names.

Nothing is written. Files whose name yields no usable module name, and files
that map to a module already taken by an earlier file, are marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.Config.Load(cmd.Context(), global.loadOptions())
			if err != nil {
				return reportConfigError(app.stderr, err, global.verbose)
			}
			gen := loaded.Config.Generate
			if cmd.Flags().Changed("extension") {
				ext, err := types.ParseFileExtension(extension)
				if err != nil {
					return usageError(app.stderr, err)
				}
				gen.Extension = ext
			}
			if cmd.Flags().Changed("exclude") {
				gen.ExcludeDirs = append(slices.Clone(gen.ExcludeDirs), exclude...)
			}
			if cmd.Flags().Changed("follow-symlinks") {
				gen.FollowSymlinks = followSymlinks
			}

			found, err := discovery.Discover(args[0], discovery.Options{
				Extension:      gen.Extension.String(),
				ExcludeDirs:    gen.ExcludeDirs,
				FollowSymlinks: gen.FollowSymlinks,
			})
			if err != nil {
				return reportFatal(app.stderr, err, global.verbose, "auto")
			}
			logDiagnostics(newLogger(app.stderr, global.verbose), found.Diagnostics)

			entries := planEntries(found.Units)
			printEntries(app.stdout, entries)
			return nil
		},
	}

	listCmd.Flags().StringVar(&extension, "extension", "dbc", "extension of input files searched in directories")
	listCmd.Flags().StringSliceVar(&exclude, "exclude", nil, "more directory names never searched (repeatable)")
	listCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "descend into symlinked directories")

	return listCmd
}

// planEntries derives the module of every unit, in discovery order, the way a
// batch would.
func planEntries(units []discovery.SourceUnit) []listEntry {
	entries := make([]listEntry, 0, len(units))
	owners := make(map[naming.ModuleIdentifier]string, len(units))
	for _, u := range units {
		e := listEntry{Unit: u, Module: naming.Derive(u.Path)}
		if valid, errs := e.Module.IsValid(); !valid {
			e.Problem = errs[0].Error()
		} else if owner, taken := owners[e.Module]; taken {
			e.Problem = "same module as " + owner
		} else {
			owners[e.Module] = u.Path
		}
		entries = append(entries, e)
	}
	return entries
}

func printEntries(w io.Writer, entries []listEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no files found)"))
		return
	}

	width := 0
	for _, e := range entries {
		width = max(width, lipgloss.Width(e.Module.String()))
	}
	pad := lipgloss.NewStyle().Width(width + 2)

	for _, e := range entries {
		module := e.Module.String()
		if module == "" {
			module = "-"
		}
		line := pad.Render(module) + e.Unit.Path
		if e.Problem != "" {
			line = ErrorStyle.Render("✗ ") + line + "  " + WarningStyle.Render("("+e.Problem+")")
		} else {
			line = SuccessStyle.Render("✓ ") + line
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
