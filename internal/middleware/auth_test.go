package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestOperatorAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(m *OperatorAuthMiddleware, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/openclaw/pairings", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		m.Handler(ok).ServeHTTP(rec, req)
		return rec
	}

	t.Run("accepts the operator password", func(t *testing.T) {
		rec := send(NewOperatorAuthMiddleware(string(hash)), "Bearer operator-pass")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		rec := send(NewOperatorAuthMiddleware(string(hash)), "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		rec := send(NewOperatorAuthMiddleware(string(hash)), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refuses everything without a configured hash", func(t *testing.T) {
		rec := send(NewOperatorAuthMiddleware(""), "Bearer operator-pass")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearer":        "",
		"":              "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), header)
	}
}
