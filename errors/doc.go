// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the instance identifier, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConfig, errors.KindMissingParam).
//		Instance(id).
//		Field("module").
//		Detail("module path is required").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingParam(id, "loader")
//	err := errors.LoadFailed(id, "/bridge/loader", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
