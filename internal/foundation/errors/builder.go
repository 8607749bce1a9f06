package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// WithFile records the source or output file the error concerns.
func (b *ErrorBuilder) WithFile(path string) *ErrorBuilder {
	return b.WithContext(ContextFile, path)
}

// WithNode records the documentation node the error concerns.
func (b *ErrorBuilder) WithNode(id string) *ErrorBuilder {
	return b.WithContext(ContextNode, id)
}

// WithStage records the pipeline stage that failed.
func (b *ErrorBuilder) WithStage(stage string) *ErrorBuilder {
	return b.WithContext(ContextStage, stage)
}

// Build creates the final ClassifiedError. The builder may be reused; later changes do not
// affect errors already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context.clone(),
	}
}

// ConfigError creates a configuration error. These always abort the run.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// UnknownError creates a graph integrity error. These always abort the run.
func UnknownError(message string) *ErrorBuilder {
	return NewError(CategoryUnknown, message).Fatal()
}

// CompilerDiagnosticError creates an error for a source file the front end rejected.
func CompilerDiagnosticError(message string) *ErrorBuilder {
	return NewError(CategoryCompilerDiagnostic, message)
}

// GenerationError creates an error for a node or resource that could not be rendered or written.
func GenerationError(message string) *ErrorBuilder {
	return NewError(CategoryGenerationOutput, message)
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// CacheError creates a parse cache error. Cache errors never abort a run.
func CacheError(message string) *ErrorBuilder {
	return NewError(CategoryCache, message).Warning()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
