// SPDX-License-Identifier: MPL-2.0

// Package watch reruns work when description files change.
//
// A Watcher registers every directory below its root with fsnotify, filters
// events through doublestar patterns and calls OnChange once per burst of
// events, after a quiet period.
package watch
