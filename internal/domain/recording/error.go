package recording

import (
	"errors"
	"fmt"
)

// Client-side pipeline failures.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrCaptureFailure   = errors.New("capture failure")
	ErrValidation       = errors.New("validation failure")
	ErrAuthRequired     = errors.New("authentication required")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrServer           = errors.New("server error")
	ErrNetwork          = errors.New("network error")
	ErrPartialSuccess   = errors.New("partial success")
)

// Server-side failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyCompleted = errors.New("request already completed")
	ErrForbidden        = errors.New("forbidden")
)

// CodeSessionExpired отличает истекший локальный токен от отсутствующего.
const CodeSessionExpired = "session_expired"

type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// SessionExpired - локальная проверка нашла истекший токен.
func SessionExpired() *DomainError {
	return &DomainError{
		Err:     ErrAuthRequired,
		Message: "Your session has expired. Please log in again.",
		Code:    CodeSessionExpired,
	}
}

// NewError builds a DomainError whose code is derived from the sentinel.
func NewError(kind error, format string, args ...any) *DomainError {
	return &DomainError{
		Err:     kind,
		Message: fmt.Sprintf(format, args...),
		Code:    codeFor(kind),
	}
}

func codeFor(kind error) string {
	switch {
	case errors.Is(kind, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(kind, ErrCaptureFailure):
		return "capture_failure"
	case errors.Is(kind, ErrValidation):
		return "validation_failure"
	case errors.Is(kind, ErrAuthRequired):
		return "auth_required"
	case errors.Is(kind, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(kind, ErrServer):
		return "server_error"
	case errors.Is(kind, ErrNetwork):
		return "network_error"
	case errors.Is(kind, ErrPartialSuccess):
		return "partial_success"
	case errors.Is(kind, ErrNotFound):
		return "not_found"
	case errors.Is(kind, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(kind, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(kind, ErrForbidden):
		return "forbidden"
	default:
		return "unknown"
	}
}

// AlertFor maps a pipeline error to the title and message shown to the user.
func AlertFor(err error) (string, string) {
	if err == nil {
		return "", ""
	}

	message := err.Error()
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Permission required", message
	case errors.Is(err, ErrCaptureFailure):
		return "Recording error", message
	case errors.Is(err, ErrValidation):
		return "Error", message
	case errors.Is(err, ErrAuthRequired):
		if de != nil && de.Code == CodeSessionExpired {
			return "Session expired", message
		}
		return "Authentication required", message
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrServer), errors.Is(err, ErrNetwork):
		return "Upload failed", message
	case errors.Is(err, ErrPartialSuccess):
		return "Failed to complete request", message
	default:
		return "Error", message
	}
}
