package errors

import (
	"maps"
	"slices"
)

// ErrorCategory represents the broad category of an error for classification and reporting.
type ErrorCategory string

const (
	// CategoryUnknown is used for failures that leave the documentation graph unusable,
	// such as an inheritance cycle.
	CategoryUnknown ErrorCategory = "unknown"
	// CategoryConfig represents missing or invalid options. Raised before any parsing.
	CategoryConfig ErrorCategory = "configuration"
	// CategoryCompilerDiagnostic represents a fatal diagnostic from the declaration front end.
	CategoryCompilerDiagnostic ErrorCategory = "compiler_diagnostic"
	// CategoryGenerationOutput represents a render or write failure for a node or resource.
	CategoryGenerationOutput ErrorCategory = "generation_output"

	CategoryValidation ErrorCategory = "validation"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryCache      ErrorCategory = "cache"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the run
	SeverityError   ErrorSeverity = "error"   // Fails the current file or node
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
	SeverityInfo    ErrorSeverity = "info"
)

// Well-known context keys. They match the attribute names in logfields so a logged error
// lines up with the log lines of the stage that raised it.
const (
	ContextFile  = "file"
	ContextNode  = "node"
	ContextStage = "stage"
	ContextPath  = "path"
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}

// GetString retrieves a string context value.
func (c ErrorContext) GetString(key string) (string, bool) {
	if value, exists := c.Get(key); exists {
		if str, ok := value.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Merge combines two contexts, with other taking precedence.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	if c == nil {
		return other
	}
	if other == nil {
		return c
	}
	result := make(ErrorContext, len(c)+len(other))
	maps.Copy(result, c)
	maps.Copy(result, other)
	return result
}

func (c ErrorContext) clone() ErrorContext {
	if len(c) == 0 {
		return nil
	}
	return maps.Clone(c)
}

// Keys returns the context keys in sorted order.
func (c ErrorContext) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}
