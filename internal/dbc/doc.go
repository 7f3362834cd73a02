// SPDX-License-Identifier: MPL-2.0

// Package dbc parses the text form of CAN network database (DBC) files.
//
// Only the parts needed to generate message accessors are modelled: the
// version string, nodes, messages with their signals, comments on messages
// and signals, and value descriptions. Every other statement (attributes,
// value tables, environment variables, ...) is recognised and skipped.
//
// Files are expected to be UTF-8. Content that is not valid UTF-8 is decoded
// as Windows-1252, which is what most vendor tools write.
package dbc
