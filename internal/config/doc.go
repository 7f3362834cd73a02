// SPDX-License-Identifier: MPL-2.0

// Package config handles dbcgen configuration using Viper with CUE as the file format.
//
// Configuration is read from the file given with --config, or from
// ~/.config/dbcgen/config.cue (XDG_CONFIG_HOME on Linux,
// ~/Library/Application Support/dbcgen/config.cue on macOS,
// %APPDATA%\dbcgen\config.cue on Windows), or from dbcgen.cue in the working
// directory. A missing file means defaults. Environment variables prefixed
// with DBCGEN_ override file values, e.g. DBCGEN_GENERATE_JOBS=4.
//
// Files are validated against the embedded config_schema.cue before they reach
// Viper, so typos in field names are reported with their position.
package config
