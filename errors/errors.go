package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the application-wide error type. HTTP handlers map it to a
// status code and a structured body.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// Detail returns a detail value, or "" when absent.
func (e AppError) Detail(key string) string {
	return e.Details[key]
}

// CodeOf returns the ErrorCode of the first AppError in err's chain, or
// ErrorCode_INTERNAL when there is none.
func CodeOf(err error) ErrorCode {
	var appErr AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCode_INTERNAL
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_INTERNAL,
		Message:   "Internal server error",
		Timestamp: time.Now().UTC(),
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode:  http.StatusBadRequest,
		Code:      ErrorCode_INVALID_ARGUMENT,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// ErrValidationFailed wraps a sentinel input error so callers can still
// match it with errors.Is.
func ErrValidationFailed(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusBadRequest,
		Code:      ErrorCode_INVALID_ARGUMENT,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode:  http.StatusNotFound,
		Code:      ErrorCode_NOT_FOUND,
		Message:   fmt.Sprintf("%s not found", resource),
		Timestamp: time.Now().UTC(),
	}
}

func ErrInvalidPayload(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusBadRequest,
		Code:      ErrorCode_INVALID_PAYLOAD,
		Message:   "Invalid payload",
		Timestamp: time.Now().UTC(),
	}
}

// Meeting Errors
func ErrMeetingNotFound(meetingID string) AppError {
	return AppError{
		HTTPCode:  http.StatusNotFound,
		Code:      ErrorCode_MEETING_NOT_FOUND,
		Message:   "Meeting not found",
		Timestamp: time.Now().UTC(),
	}.WithDetail("meeting_id", meetingID)
}

func ErrMeetingAlreadyExists(meetingID string) AppError {
	return AppError{
		HTTPCode:  http.StatusConflict,
		Code:      ErrorCode_MEETING_ALREADY_EXISTS,
		Message:   "Meeting already exists",
		Timestamp: time.Now().UTC(),
	}.WithDetail("meeting_id", meetingID)
}

func ErrAudioNotFound(path string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusNotFound,
		Code:      ErrorCode_AUDIO_NOT_FOUND,
		Message:   "Audio source not found",
		Timestamp: time.Now().UTC(),
	}.WithDetail("audio_path", path)
}

// ErrStageFailed reports a fatal pipeline stage failure. The stage name is
// kept in Details["stage"].
func ErrStageFailed(stage string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_PIPELINE_STAGE_FAILED,
		Message:   fmt.Sprintf("Pipeline stage %q failed", stage),
		Timestamp: time.Now().UTC(),
	}.WithDetail("stage", stage)
}

// ErrCorruptState reports a persisted artifact that exists but cannot be
// decoded.
func ErrCorruptState(artifact string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_CORRUPT_STATE,
		Message:   "Persisted meeting state is corrupt",
		Timestamp: time.Now().UTC(),
	}.WithDetail("artifact", artifact)
}

func ErrEmbeddingMismatch(expected, actual string) AppError {
	return AppError{
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_EMBEDDING_MISMATCH,
		Message:   "Embedding model mismatch",
		Timestamp: time.Now().UTC(),
	}.WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// Integration Errors
func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_INTEGRATION_STORAGE_FAILED,
		Message:   fmt.Sprintf("Storage operation failed: %s", operation),
		Timestamp: time.Now().UTC(),
	}
}

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_INTEGRATION_CACHE_FAILED,
		Message:   fmt.Sprintf("Cache operation failed: %s", operation),
		Timestamp: time.Now().UTC(),
	}
}

func ErrExternalAPIFailed(service string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusBadGateway,
		Code:      ErrorCode_INTEGRATION_EXTERNAL_API_FAILED,
		Message:   fmt.Sprintf("External API call failed: %s", service),
		Timestamp: time.Now().UTC(),
	}
}

// Database Errors
func ErrDBConnectionFailed(err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_DB_CONNECTION_FAILED,
		Message:   "Database connection failed",
		Timestamp: time.Now().UTC(),
	}
}

func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  http.StatusInternalServerError,
		Code:      ErrorCode_DB_QUERY_FAILED,
		Message:   "Database query failed",
		Timestamp: time.Now().UTC(),
	}.WithDetail("query", query)
}
