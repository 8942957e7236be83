package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/internal/audit"
	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
	"github.com/openclaw/pairing-relay-go/internal/httputil"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

// OperatorAuthMiddleware guards direct code issuance. The bearer value is the
// operator password, checked against a bcrypt hash. With no hash configured
// every request is refused.
type OperatorAuthMiddleware struct {
	passwordHash string
}

func NewOperatorAuthMiddleware(passwordHash string) *OperatorAuthMiddleware {
	return &OperatorAuthMiddleware{passwordHash: passwordHash}
}

func (m *OperatorAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.passwordHash == "" {
			log.Warn().Msg("operator route called but OPERATOR_PASSWORD_HASH is not set")
			httputil.WriteError(w, apperrors.Unauthorized("Operator access is disabled"))
			return
		}

		password := BearerToken(r)
		if password == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing operator credential"))
			return
		}

		if !util.CheckPasswordHash(password, m.passwordHash) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventOperatorAuthFailure})
			httputil.WriteError(w, apperrors.Unauthorized("Invalid operator credential"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// BearerToken returns the value of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
