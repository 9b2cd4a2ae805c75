// Package wat compiles WebAssembly Text format into binary core modules.
//
// The bridge uses it to build guest modules for tests and examples from
// readable sources instead of hand-encoded bytes.
//
//	bin, err := wat.Compile(`(module
//		(import "bridge" "surface_width" (func $width (result i32)))
//		(func (export "_start") (drop (call $width)))
//	)`)
//
// Supported WASM 2.0 features:
//   - Functions with params, results, locals (named and indexed)
//   - Multi-value returns and block parameters
//   - Memory, global, table declarations with imports/exports
//   - Control flow: if/then/else, loop, block, br, br_if, br_table, return
//   - call, call_indirect with type references
//   - Integer and float arithmetic, comparisons, conversions
//   - Memory: load/store with offset/align, bulk memory
//   - Table ops and reference types
//   - Data and elem sections (active, passive, declarative)
//   - Comments: line (;;) and block (; ;)
//
// Not supported: SIMD (v128), threads/atomics, exception handling, GC types.
package wat
