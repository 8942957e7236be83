package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeInvalidCode, "Invalid pairing code")
		assert.Equal(t, "INVALID_CODE: Invalid pairing code", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "Database error")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"errorDetail": "gateway said no"}
		err := New(ErrCodeAuthFailed, "Gateway rejected credential").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("code", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("code") }, ErrCodeMissingRequired},
		{"InvalidRequestCode", InvalidRequestCode, ErrCodeInvalidRequestCode},
		{"ExpiredRequestCode", ExpiredRequestCode, ErrCodeExpiredRequestCode},
		{"InvalidCode", InvalidCode, ErrCodeInvalidCode},
		{"ExpiredCode", ExpiredCode, ErrCodeExpiredCode},
		{"MaxClaimsReached", MaxClaimsReached, ErrCodeMaxClaimsReached},
		{"InvalidSession", InvalidSession, ErrCodeInvalidSession},
		{"ExpiredSession", ExpiredSession, ErrCodeExpiredSession},
		{"InvalidGatewayURL", func() *AppError { return InvalidGatewayURL("ftp://x") }, ErrCodeInvalidGatewayURL},
		{"MissingToken", MissingToken, ErrCodeMissingToken},
		{"EmptyMessage", EmptyMessage, ErrCodeEmptyMessage},
		{"PairingRequired", PairingRequired, ErrCodePairingRequired},
		{"PairingExpired", PairingExpired, ErrCodePairingExpired},
		{"PairingInvalid", PairingInvalid, ErrCodePairingInvalid},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestInvalidGatewayURL(t *testing.T) {
	t.Run("carries the rejected input", func(t *testing.T) {
		err := InvalidGatewayURL("ftp://example")
		assert.Equal(t, map[string]string{"input": "ftp://example"}, err.Details)
	})
}

func TestDatabase(t *testing.T) {
	t.Run("wraps database error", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Database(cause)
		assert.Equal(t, ErrCodeDatabase, err.Code)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		assert.True(t, IsAppError(InvalidCode()))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		assert.False(t, IsAppError(errors.New("standard error")))
	})

	t.Run("returns true for fmt wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("claim: %w", MaxClaimsReached())
		assert.True(t, IsAppError(wrapped))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := InvalidSession()
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodeExpiredCode, GetCode(ExpiredCode()))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
	})
}

func TestMissingRequiredMessage(t *testing.T) {
	err := MissingRequired("code")
	assert.Equal(t, "code is required", err.Message)
}
