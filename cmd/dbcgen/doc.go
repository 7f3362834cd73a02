// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for dbcgen.
//
// The root command runs a batch: it discovers description files below an
// input path, generates one source module per file into an output directory
// and optionally writes a module index. Subcommands list what a batch would
// pick up and manage the configuration file.
package cmd
