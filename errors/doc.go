// Package errors provides structured error types for the selfwire library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes a field path and a cause chain, so a
// caller can tell corrupt schema bytes apart from a schema/type mismatch and
// from an underlying codec failure.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("user", "age").
//		Detail("schema has str, target asked for u32").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Malformed("node %d references undefined id %d", i, id)
//	err := errors.Codec(errors.PhaseDecode, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
