package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatAuth       ErrorCategory = "auth"       // Authentication failure
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
	ErrCatCapability ErrorCategory = "capability" // Tool probe failure (soft)
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrAuthRequest reports that the device-authorization grant could not be started.
func ErrAuthRequest(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      CodeAuthRequestFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrLogout reports that the stored credential could not be cleared.
// The session stays authenticated when this is returned.
func ErrLogout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      CodeLogoutFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrAssistant reports a failed assistant invocation.
func ErrAssistant(message string) *DomainError {
	return ErrExecution(CodeAssistantFailed, message)
}

// ErrCapabilityQuery reports a failed tool probe. Callers swallow it.
func ErrCapabilityQuery(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCapability,
		Code:      CodeCapabilityQueryFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrInstall reports a failed CLI installation.
func ErrInstall(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeInstallFailed,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code == code
	}
	return false
}

// UserMessage returns the text shown to the user for err: the domain message
// when there is one, the plain error text otherwise, and fallback when both
// are blank.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var domErr *DomainError
	if errors.As(err, &domErr) && strings.TrimSpace(domErr.Message) != "" {
		return domErr.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// Predefined error codes
const (
	CodeAuthRequestFailed     = "AUTH_REQUEST_FAILED"
	CodeLogoutFailed          = "LOGOUT_FAILED"
	CodeAssistantFailed       = "ASSISTANT_FAILED"
	CodeCapabilityQueryFailed = "CAPABILITY_QUERY_FAILED"
	CodeInstallFailed         = "INSTALL_FAILED"
	CodeUnsupportedPlatform   = "UNSUPPORTED_PLATFORM"
	CodeContextCopyFailed     = "CONTEXT_COPY_FAILED"
	CodeContextIsDirectory    = "CONTEXT_IS_DIRECTORY"
	CodeUnknownModel          = "UNKNOWN_MODEL"
	CodeInvalidConfig         = "INVALID_CONFIG"
	CodeTokenStoreFailed      = "TOKEN_STORE_FAILED"
	CodeClipboardFailed       = "CLIPBOARD_FAILED"
	CodeNothingToCopy         = "NOTHING_TO_COPY"
)
