// Package errors provides the classified error primitives used across doctool.
//
// Every failure that crosses a component boundary is a ClassifiedError carrying one of
// the categories below. The category decides whether the run aborts and which exit code
// the CLI reports.
//
//   - CategoryConfig: invalid or missing options, raised before any parsing
//   - CategoryUnknown: the documentation graph is unusable (for example an inheritance cycle)
//   - CategoryCompilerDiagnostic: a source file was rejected by the front end; the run continues
//   - CategoryGenerationOutput: a node could not be rendered or written; the run continues
//
// Example usage:
//
//	err := errors.GenerationError("write page failed").
//		WithContext("node", node.ID).
//		WithCause(writeErr).
//		Build()
package errors
