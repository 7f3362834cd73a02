// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/dbcgen/dbcgen/internal/config"
)

// newLogger returns the structured logger for one invocation. Records go to w
// through the charm log handler; verbose lowers the level to debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  log.InfoLevel,
	})
	if verbose {
		handler.SetLevel(log.DebugLevel)
	}
	return slog.New(handler)
}

// applyColorScheme tells lipgloss which background to assume and returns the
// glamour style used to render issue guides.
func applyColorScheme(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
		return "dark"
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
		return "light"
	default:
		return "auto"
	}
}
