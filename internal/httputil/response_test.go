package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"code": "ABCDEFGH"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"code":"ABCDEFGH"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	t.Run("writes app error with details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.InvalidGatewayURL("ftp://gw"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apperrors.ErrCodeInvalidGatewayURL, body.Code)
		assert.Equal(t, map[string]any{"input": "ftp://gw"}, body.Details)
	})

	t.Run("hides unknown errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
		assert.Contains(t, rec.Body.String(), string(apperrors.ErrCodeInternal))
	})
}

func TestStatusFromCode(t *testing.T) {
	cases := map[apperrors.ErrorCode]int{
		apperrors.ErrCodeEmptyMessage:       http.StatusBadRequest,
		apperrors.ErrCodePairingRequired:    http.StatusBadRequest,
		apperrors.ErrCodePairingInvalid:     http.StatusUnauthorized,
		apperrors.ErrCodeInvalidRequestCode: http.StatusBadRequest,
		apperrors.ErrCodeConnectFailed:      http.StatusGatewayTimeout,
		apperrors.ErrCodeInvalidCode:        http.StatusNotFound,
		apperrors.ErrCodeMaxClaimsReached:   http.StatusConflict,
		apperrors.ErrCodeExpiredRequestCode: http.StatusGone,
		apperrors.ErrCodePairingExpired:     http.StatusGone,
		apperrors.ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
		apperrors.ErrCodeAuthFailed:         http.StatusBadGateway,
		apperrors.ErrCodeIdleTimeout:        http.StatusGatewayTimeout,
		apperrors.ErrCodeDatabase:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFromCode(code), string(code))
	}
}
