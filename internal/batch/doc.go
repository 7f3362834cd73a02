// SPDX-License-Identifier: MPL-2.0

// Package batch generates one output file per discovered unit and writes the
// module index that declares them.
//
// A Processor isolates per-unit failures: an unreadable unit, a file name
// that does not yield a usable module identifier, or a generation error is
// recorded as a Failure and the batch continues. Problems with the output
// location itself (an invalid output directory, a destination that cannot
// be created) and identifier collisions under the "error" policy abort the
// batch. Outputs are written through a temporary file in the output
// directory and renamed into place, so a failed unit never leaves a partial
// file behind.
package batch
