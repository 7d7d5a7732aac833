package common

import (
	"errors"
	"fmt"
)

// Failure codes surfaced to callers. Every error leaving the orchestrator
// carries exactly one of these.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeOCRFailed        = "OCR_FAILED"
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeAIServiceError   = "AI_SERVICE_ERROR"
	CodeEmptyAIResponse  = "EMPTY_AI_RESPONSE"
	CodeMalformedOutput  = "MALFORMED_RESPONSE"
	CodeSchemaValidation = "SCHEMA_VALIDATION_FAILED"
	CodeCacheError       = "CACHE_ERROR"
	CodeInternal         = "INTERNAL"
)

// AppError represents application-specific errors.
type AppError struct {
	Code    string
	Message string
	Detail  string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError builds an AppError with an optional cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NewAppErrorDetail builds an AppError carrying a caller-visible detail string.
func NewAppErrorDetail(code, message, detail string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Detail: detail, Cause: cause}
}

// AsAppError unwraps err to the first AppError in its chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
