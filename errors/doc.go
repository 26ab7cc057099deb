// Package errors provides structured error types for the component runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/WIT type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLower, errors.KindTypeMismatch).
//		Path("param", "0").
//		GoType("chan int").
//		WitType("string").
//		Detail("value cannot be coerced to a string").
//		Build()
//
// Three error types sit beside Error:
//
//   - DecodeError carries a message and the byte offset of a malformed binary
//   - LinkError names an import that is missing or of the wrong kind
//   - ErrNotComponent marks bytes that are a core module, not a component
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
