// Package errors provides structured error types for the wasm-loader library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the import/export path, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLink, errors.KindMissingImport).
//		Path("lib", "log").
//		Detail("host function not provided").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Fetch("module.wasm", cause)
//	err := errors.NotInitialized(errors.PhaseMemory, "allocator")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
