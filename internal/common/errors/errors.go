package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for logging; users only ever see one generic message.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	ErrCodeSizeUnknown  ErrorCode = "SIZE_UNKNOWN"

	ErrCodeExtraction  ErrorCode = "EXTRACTION_FAILED"
	ErrCodeDatabase    ErrorCode = "DATABASE_ERROR"
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
	ErrCodeRateLimit   ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeCache       ErrorCode = "CACHE_ERROR"
)

// AppError is the typed application error.
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value pair. Fields collects them for log lines.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func NewFileTooLargeError(size, limit int64) *AppError {
	return New(ErrCodeFileTooLarge, fmt.Sprintf("media size %d exceeds limit %d", size, limit)).
		WithDetail("size", size).
		WithDetail("limit", limit)
}

func NewExtractionError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeExtraction, fmt.Sprintf("extraction failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, fmt.Sprintf("database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("telegram API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewRateLimitError(service string, retryAfter int) *AppError {
	return New(ErrCodeRateLimit, fmt.Sprintf("rate limit exceeded for %s", service)).
		WithDetail("service", service).
		WithDetail("retry_after", retryAfter)
}

func NewCacheError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeCache, fmt.Sprintf("cache operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError finds the first AppError in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether any AppError in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Fields merges the details of every AppError in the chain, outermost first.
// Keys set by an outer error win. Returns nil when there are none.
func Fields(err error) map[string]interface{} {
	var fields map[string]interface{}
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			break
		}
		for k, v := range appErr.Details {
			if fields == nil {
				fields = make(map[string]interface{})
			}
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
		err = appErr.Cause
	}
	return fields
}
