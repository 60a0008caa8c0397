package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryResource   Category = "resource"
	CategoryHydration  Category = "hydration"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// FireboltError is a structured error with a code, suggestions and a cause.
type FireboltError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (navigation, resource, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Fields are structured key/value attributes (URL, route id, key).
	Fields map[string]string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *FireboltError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *FireboltError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a FireboltError with the same code.
func (e *FireboltError) Is(target error) bool {
	t, ok := target.(*FireboltError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *FireboltError) WithSuggestion(s string) *FireboltError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *FireboltError) WithDetail(d string) *FireboltError {
	e.Detail = d
	return e
}

// WithField attaches a structured attribute to the error.
func (e *FireboltError) WithField(key, value string) *FireboltError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// Wrap wraps another error.
func (e *FireboltError) Wrap(err error) *FireboltError {
	e.Wrapped = err
	return e
}

// LogAttrs returns the error as alternating slog key/value pairs.
func (e *FireboltError) LogAttrs() []any {
	attrs := []any{"code", e.Code, "category", string(e.Category)}
	for k, v := range e.Fields {
		attrs = append(attrs, k, v)
	}
	if e.Wrapped != nil {
		attrs = append(attrs, "error", e.Wrapped.Error())
	}
	return attrs
}

// New creates a FireboltError from a registered error code.
func New(code string) *FireboltError {
	template, ok := registry[code]
	if !ok {
		return &FireboltError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &FireboltError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new FireboltError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *FireboltError {
	return &FireboltError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a FireboltError.
// An error that already is (or wraps) a FireboltError is returned as is.
func FromError(err error, code string) *FireboltError {
	if err == nil {
		return nil
	}
	var fe *FireboltError
	if stderrors.As(err, &fe) {
		return fe
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first FireboltError in err's chain.
func Code(err error) string {
	var fe *FireboltError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
