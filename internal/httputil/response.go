package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
)

// WriteJSON writes data as JSON. Every body can carry codes or tokens, so
// responses are never cached.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug().Err(err).Msg("failed to encode response")
	}
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		log.Error().Err(err).Msg("unhandled error")
		appErr = apperrors.Internal("An unexpected error occurred")
	}
	if appErr.Code == apperrors.ErrCodeDatabase || appErr.Code == apperrors.ErrCodeInternal {
		log.Error().Err(appErr).Msg("request failed")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidGatewayURL,
		apperrors.ErrCodeMissingToken,
		apperrors.ErrCodeEmptyMessage,
		apperrors.ErrCodePairingRequired,
		apperrors.ErrCodeInvalidRequestCode:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeInvalidSession,
		apperrors.ErrCodePairingInvalid:
		return http.StatusUnauthorized

	// 404 Not Found
	case apperrors.ErrCodeInvalidCode:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeMaxClaimsReached:
		return http.StatusConflict

	// 410 Gone
	case apperrors.ErrCodeExpiredRequestCode,
		apperrors.ErrCodeExpiredCode,
		apperrors.ErrCodeExpiredSession,
		apperrors.ErrCodePairingExpired:
		return http.StatusGone

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeAuthFailed,
		apperrors.ErrCodeClosed,
		apperrors.ErrCodeIncompleteClose,
		apperrors.ErrCodeEmptyResponse,
		apperrors.ErrCodeProtocol:
		return http.StatusBadGateway

	// 504 Gateway Timeout
	case apperrors.ErrCodeConnectFailed,
		apperrors.ErrCodeTimeout,
		apperrors.ErrCodeIdleTimeout:
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
