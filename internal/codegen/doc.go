// SPDX-License-Identifier: MPL-2.0

// Package codegen turns one CAN database into one generated source file.
//
// Engine is the contract the batch processor drives: Generate renders a
// single unit, GenerateIndex renders the aggregating module file that
// declares every generated module. RustEngine is the default implementation
// and emits Rust.
//
// Config values are immutable. The batch processor derives one per unit
// with WithUnit from a base value built once per run.
package codegen
