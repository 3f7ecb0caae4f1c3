// Package errors defines the structured error type shared by the template
// compiler, the artifact cache and the CLI.
//
// Every failure that crosses a package boundary is a *SigilError carrying an
// ErrorType and a code. The four failure kinds callers branch on are exposed
// as sentinels and matched with errors.Is:
//
//	if errors.Is(err, sigilerrors.ErrPartialNotFound) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeCompile    ErrorType = "compile"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeTemplateNotFound    = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodePartialNotFound     = "ERR_PARTIAL_NOT_FOUND"
	ErrCodeCompileFailed       = "ERR_COMPILE_FAILED"
	ErrCodeNoTemplateSpecified = "ERR_NO_TEMPLATE_SPECIFIED"
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodeRenderFailed        = "ERR_RENDER_FAILED"
)

// Sentinels for errors.Is. They compare by type and code only, so any
// *SigilError built with the same pair matches regardless of message.
var (
	ErrTemplateNotFound    = &SigilError{Type: ErrorTypeNotFound, Code: ErrCodeTemplateNotFound, Message: "template not found"}
	ErrPartialNotFound     = &SigilError{Type: ErrorTypeNotFound, Code: ErrCodePartialNotFound, Message: "partial not found"}
	ErrCompile             = &SigilError{Type: ErrorTypeCompile, Code: ErrCodeCompileFailed, Message: "compilation failed"}
	ErrNoTemplateSpecified = &SigilError{Type: ErrorTypeValidation, Code: ErrCodeNoTemplateSpecified, Message: "no template specified"}
)

// SigilError is a structured error type with context.
type SigilError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	FilePath  string
	Line      int
	Column    int
}

// Error implements the error interface.
func (e *SigilError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SigilError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *SigilError) Is(target error) bool {
	var t *SigilError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SigilError) WithContext(key string, value interface{}) *SigilError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *SigilError) WithLocation(filePath string, line, column int) *SigilError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *SigilError) WithComponent(component string) *SigilError {
	e.Component = component

	return e
}

// Error creation functions

// NewTemplateNotFound reports an identifier with no backing source file.
func NewTemplateNotFound(identifier, path string) *SigilError {
	return &SigilError{
		Type:     ErrorTypeNotFound,
		Code:     ErrCodeTemplateNotFound,
		Message:  "template not found: " + identifier,
		FilePath: path,
	}
}

// NewPartialNotFound reports an @include target with no backing source file.
func NewPartialNotFound(identifier, path string) *SigilError {
	return &SigilError{
		Type:     ErrorTypeNotFound,
		Code:     ErrCodePartialNotFound,
		Message:  "partial template not found: " + identifier,
		FilePath: path,
	}
}

// NewCompileError creates a compile error.
func NewCompileError(message string, cause error) *SigilError {
	return &SigilError{
		Type:    ErrorTypeCompile,
		Code:    ErrCodeCompileFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewNoTemplateSpecified reports an empty template identifier.
func NewNoTemplateSpecified() *SigilError {
	return &SigilError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeNoTemplateSpecified,
		Message: "no template specified",
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *SigilError {
	return &SigilError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: message,
		Cause:   cause,
	}
}

// NewRenderError wraps a failure raised while executing a compiled artifact.
func NewRenderError(path string, cause error) *SigilError {
	return &SigilError{
		Type:     ErrorTypeInternal,
		Code:     ErrCodeRenderFailed,
		Message:  "render failed",
		Cause:    cause,
		FilePath: path,
	}
}

// IsNotFound reports whether err is a template or partial lookup failure.
func IsNotFound(err error) bool {
	var se *SigilError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeNotFound
	}

	return false
}

// IsCompileError checks if an error is compile-related.
func IsCompileError(err error) bool {
	var se *SigilError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeCompile
	}

	return false
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler provides centralized error reporting for the CLI.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level chosen by its type. Missing templates and
// authoring mistakes are warnings; everything else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SigilError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch se.Type {
	case ErrorTypeNotFound, ErrorTypeValidation:
		h.logger.Warn(ctx, se, "Template lookup failed",
			"type", se.Type,
			"code", se.Code,
			"file", se.FilePath)
	case ErrorTypeCompile:
		h.logger.Warn(ctx, se, "Compilation failed",
			"type", se.Type,
			"code", se.Code,
			"file", se.FilePath,
			"line", se.Line)
	default:
		h.logger.Error(ctx, se, "Error occurred",
			"type", se.Type,
			"code", se.Code,
			"component", se.Component)
	}
}
