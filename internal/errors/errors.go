package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Pairing requests
	ErrCodeInvalidRequestCode ErrorCode = "INVALID_REQUEST_CODE"
	ErrCodeExpiredRequestCode ErrorCode = "EXPIRED_REQUEST_CODE"

	// Pairing codes
	ErrCodeInvalidCode      ErrorCode = "INVALID_CODE"
	ErrCodeExpiredCode      ErrorCode = "EXPIRED_CODE"
	ErrCodeMaxClaimsReached ErrorCode = "MAX_CLAIMS_REACHED"

	// Sessions
	ErrCodeInvalidSession ErrorCode = "INVALID_SESSION"
	ErrCodeExpiredSession ErrorCode = "EXPIRED_SESSION"

	// Gateway relay
	ErrCodeInvalidGatewayURL ErrorCode = "INVALID_GATEWAY_URL"
	ErrCodeMissingToken      ErrorCode = "MISSING_TOKEN"
	ErrCodeConnectFailed     ErrorCode = "CONNECT_FAILED"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeIdleTimeout       ErrorCode = "IDLE_TIMEOUT"
	ErrCodeAuthFailed        ErrorCode = "AUTH_FAILED"
	ErrCodeEmptyMessage      ErrorCode = "EMPTY_MESSAGE"
	ErrCodeClosed            ErrorCode = "CLOSED"
	ErrCodeIncompleteClose   ErrorCode = "INCOMPLETE_CLOSE"
	ErrCodeEmptyResponse     ErrorCode = "EMPTY_RESPONSE"
	ErrCodeProtocol          ErrorCode = "PROTOCOL_ERROR"

	// Chat boundary
	ErrCodePairingRequired ErrorCode = "PAIRING_REQUIRED"
	ErrCodePairingExpired  ErrorCode = "PAIRING_EXPIRED"
	ErrCodePairingInvalid  ErrorCode = "PAIRING_INVALID"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func InvalidRequestCode() *AppError {
	return New(ErrCodeInvalidRequestCode, "Invalid pairing request code")
}

func ExpiredRequestCode() *AppError {
	return New(ErrCodeExpiredRequestCode, "Pairing request code has expired")
}

func InvalidCode() *AppError {
	return New(ErrCodeInvalidCode, "Invalid pairing code")
}

func ExpiredCode() *AppError {
	return New(ErrCodeExpiredCode, "Pairing code has expired")
}

func MaxClaimsReached() *AppError {
	return New(ErrCodeMaxClaimsReached, "Pairing code has already been used")
}

func InvalidSession() *AppError {
	return New(ErrCodeInvalidSession, "Invalid session")
}

func ExpiredSession() *AppError {
	return New(ErrCodeExpiredSession, "Session has expired")
}

// InvalidGatewayURL keeps the rejected input in Details so operators can see what was typed.
func InvalidGatewayURL(input string) *AppError {
	return New(ErrCodeInvalidGatewayURL, "Gateway URL must be a ws:// or wss:// address").
		WithDetails(map[string]string{"input": input})
}

func MissingToken() *AppError {
	return New(ErrCodeMissingToken, "Gateway token is required")
}

func EmptyMessage() *AppError {
	return New(ErrCodeEmptyMessage, "A non-empty user message is required")
}

func PairingRequired() *AppError {
	return New(ErrCodePairingRequired, "Pairing required")
}

func PairingExpired() *AppError {
	return New(ErrCodePairingExpired, "Pairing has expired, pair again")
}

func PairingInvalid() *AppError {
	return New(ErrCodePairingInvalid, "Pairing is no longer valid, pair again")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
