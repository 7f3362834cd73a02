// SPDX-License-Identifier: MPL-2.0

// Package discovery enumerates the description files (units) below an input path.
//
// A regular file given as the root is always a unit, whatever its extension.
// A directory root is walked depth-first using an explicit worklist, with entries
// visited in lexical order so that the result is deterministic for a given tree.
// Only the root itself is allowed to fail the walk: unreadable entries further
// down are reported as Diagnostics and the rest of the tree is still scanned.
//
// File organization:
//   - discovery.go: SourceUnit, Options, Result and Discover
//   - walk.go: the worklist traversal
//   - diagnostic.go: structured non-fatal diagnostics
package discovery
