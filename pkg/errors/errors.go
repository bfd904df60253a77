package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryEdit          ErrorCategory = "edit"
	CategoryExport        ErrorCategory = "export"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeMissingField  ErrorCode = "missing_field"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Edit errors
	CodeUnknownRow      ErrorCode = "unknown_row"
	CodeUneditableField ErrorCode = "uneditable_field"

	// Export errors
	CodeExportBlocked     ErrorCode = "export_blocked"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReviewError is the base error type for all application errors
type ReviewError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReviewError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReviewError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReviewError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryEdit, CategoryInternal:
		return 5
	case CategoryExport:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReviewError) WithContext(key string, value interface{}) *ReviewError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReviewError) WithSuggestion(suggestion string) *ReviewError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReviewError
func New(category ErrorCategory, code ErrorCode, message string) *ReviewError {
	return &ReviewError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReviewError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReviewError {
	if err == nil {
		return nil
	}

	return &ReviewError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReviewError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "re-run the extraction step and use its fresh output"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an error for malformed extraction output
func ParseError(code ErrorCode, source string, detail string, err error) *ReviewError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid statement document format in %s: %s", source, detail)
		suggestion = "verify the file is the JSON output of the extraction step"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s: %s", source, detail)
		suggestion = "correct the offending value or re-run extraction"
	case CodeMissingField:
		message = fmt.Sprintf("missing required field in %s: %s", source, detail)
		suggestion = "ensure the extraction output includes statement metadata"
	default:
		message = fmt.Sprintf("parse error in %s: %s", source, detail)
		suggestion = "check the document structure"
	}

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// EditError creates an error for a correction that cannot be applied
func EditError(code ErrorCode, rowID string, field string, err error) *ReviewError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownRow:
		message = fmt.Sprintf("no transaction with row id %q", rowID)
		suggestion = "use a row id reported by the review output"
	case CodeUneditableField:
		message = fmt.Sprintf("field %q of row %q is not editable", field, rowID)
		suggestion = "editable fields are postedDate, description, debit and credit"
	default:
		message = fmt.Sprintf("edit failed for row %q", rowID)
		suggestion = "check the edit specification"
	}

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryEdit, code, message)
	} else {
		result = New(CategoryEdit, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("row_id", rowID).
		WithContext("field", field)
}

// ExportError creates an export-related error
func ExportError(code ErrorCode, format string, err error) *ReviewError {
	var message string
	var suggestion string

	switch code {
	case CodeExportBlocked:
		message = fmt.Sprintf("%s export refused: statement has unresolved blocking flags", format)
		suggestion = "fix the flagged rows and re-run the review before exporting"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported export format: %s", format)
		suggestion = "supported formats are csv and ofx"
	default:
		message = fmt.Sprintf("export failed for format %s", format)
		suggestion = "check the statement data and try again"
	}

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryExport, code, message)
	} else {
		result = New(CategoryExport, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("format", format)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReviewError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReviewError {
	message := fmt.Sprintf("internal error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *ReviewError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// Utility functions

// IsReviewError checks if an error is a ReviewError
func IsReviewError(err error) bool {
	_, ok := err.(*ReviewError)
	return ok
}

// AsReviewError extracts a ReviewError from an error chain
func AsReviewError(err error) (*ReviewError, bool) {
	var reviewErr *ReviewError
	if errors.As(err, &reviewErr) {
		return reviewErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReviewError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReviewError {
	if err == nil {
		return nil
	}

	if reviewErr, ok := AsReviewError(err); ok {
		return reviewErr
	}

	return Wrap(err, category, code, message)
}

// JoinMessages formats a bounded list of messages for display
func JoinMessages(messages []string, max int) string {
	if len(messages) == 0 {
		return ""
	}
	if max <= 0 || len(messages) <= max {
		return strings.Join(messages, "; ")
	}
	shown := strings.Join(messages[:max], "; ")
	return fmt.Sprintf("%s; and %d more", shown, len(messages)-max)
}
