package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openclaw/pairing-relay-go/internal/database"
	"github.com/openclaw/pairing-relay-go/internal/middleware"
	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/relay"
	"github.com/openclaw/pairing-relay-go/internal/repository"
	"github.com/openclaw/pairing-relay-go/internal/service"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

const operatorPassword = "operator-pass"

type stubRelayer struct {
	reply string
	err   error
	last  relay.Request
	calls int
}

func (s *stubRelayer) Send(ctx context.Context, req relay.Request) (string, error) {
	s.calls++
	s.last = req
	return s.reply, s.err
}

func newTestRouter(t *testing.T, relayer *stubRelayer) http.Handler {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "pairing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	cipher, err := util.NewCipher("handler-test-secret")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.MinCost)
	require.NoError(t, err)

	pairingService := service.NewPairingService(db, repository.NewStore(db.DB), cipher, service.DefaultPairingDefaults(), nil)
	chatService := service.NewChatService(pairingService, relayer, nil)

	operator := middleware.NewOperatorAuthMiddleware(string(hash)).Handler
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Mount("/openclaw/chat", NewChatHandler(chatService).Routes(passthrough))
	r.Mount("/openclaw", NewPairingHandler(pairingService).Routes(operator, passthrough))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(rec.Body.Bytes()), &out))
	}
	return rec, out
}

func TestPairingHandler(t *testing.T) {
	relayer := &stubRelayer{reply: "hello back"}
	h := newTestRouter(t, relayer)
	operatorAuth := []string{"Authorization", "Bearer " + operatorPassword}

	t.Run("operator issue, claim, resolve and chat", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings",
			`{"gatewayUrl":"https://gw.example","gatewayToken":"secret-1","agentName":"Agent One","maxClaims":"2"}`,
			operatorAuth...)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "Agent-One", body["agentName"])
		assert.EqualValues(t, 2, body["maxClaims"])
		code := body["code"].(string)

		rec, body = do(t, h, http.MethodPost, "/openclaw/pairings/claim",
			`{"code":"`+strings.ToLower(util.FormatCode(code))+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		token := body["sessionToken"].(string)
		assert.NotEmpty(t, token)
		assert.NotContains(t, rec.Body.String(), "secret-1")

		rec, body = do(t, h, http.MethodGet, "/openclaw/session", "", "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Agent-One", body["agentName"])
		assert.NotContains(t, rec.Body.String(), "gw.example")

		rec, body = do(t, h, http.MethodPost, "/openclaw/chat",
			`{"sessionToken":"`+token+`","messages":[{"role":"user","content":"hi"},"junk",{"role":"robot","content":"x"}]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "hello back", body["reply"])
		assert.Equal(t, "wss://gw.example/", relayer.last.GatewayURL)
		assert.Equal(t, "secret-1", relayer.last.GatewayToken)
		assert.Equal(t, []model.ChatMessage{{Role: model.ChatRoleUser, Content: "hi"}}, relayer.last.Messages)
	})

	t.Run("operator issue requires the password", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings", `{"gatewayToken":"x"}`, "Authorization", "Bearer wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", body["code"])
	})

	t.Run("request flow issues a code once", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings/requests", "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.EqualValues(t, 300, body["ttlSeconds"])
		requestCode := body["requestCode"].(string)

		payload := `{"requestCode":"` + requestCode + `","gatewayUrl":"ws://127.0.0.1:18789","gatewayToken":"tok"}`
		rec, _ = do(t, h, http.MethodPost, "/openclaw/pairings/from-request", payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec, body = do(t, h, http.MethodPost, "/openclaw/pairings/from-request", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST_CODE", body["code"])
	})

	t.Run("from-request without a code is rejected", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings/from-request", `{"gatewayToken":"tok"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST_CODE", body["code"])
	})

	t.Run("invalid gateway url carries the input", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings",
			`{"gatewayUrl":"ftp://gw","gatewayToken":"tok"}`, operatorAuth...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_GATEWAY_URL", body["code"])
		assert.Equal(t, map[string]any{"input": "ftp://gw"}, body["details"])
	})

	t.Run("second claim of a single use code conflicts", func(t *testing.T) {
		_, body := do(t, h, http.MethodPost, "/openclaw/pairings", `{"gatewayToken":"tok"}`, operatorAuth...)
		payload := `{"code":"` + body["code"].(string) + `"}`

		rec, _ := do(t, h, http.MethodPost, "/openclaw/pairings/claim", payload)
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body = do(t, h, http.MethodPost, "/openclaw/pairings/claim", payload)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "MAX_CLAIMS_REACHED", body["code"])
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings/claim", `{"code":"ZZZZ-ZZZZ"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "INVALID_CODE", body["code"])
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		rec, body := do(t, h, http.MethodPost, "/openclaw/pairings/claim", `{"code":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", body["code"])
	})

	t.Run("session lookup needs a token", func(t *testing.T) {
		rec, body := do(t, h, http.MethodGet, "/openclaw/session", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PAIRING_REQUIRED", body["code"])

		rec, body = do(t, h, http.MethodGet, "/openclaw/session", "", "Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_SESSION", body["code"])
	})
}

func TestChatHandler(t *testing.T) {
	t.Run("missing session token requires pairing", func(t *testing.T) {
		relayer := &stubRelayer{reply: "x"}
		h := newTestRouter(t, relayer)

		rec, body := do(t, h, http.MethodPost, "/openclaw/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "PAIRING_REQUIRED", body["code"])
		assert.Zero(t, relayer.calls)
	})

	t.Run("no user message never reaches the gateway", func(t *testing.T) {
		relayer := &stubRelayer{reply: "x"}
		h := newTestRouter(t, relayer)

		rec, body := do(t, h, http.MethodPost, "/openclaw/chat",
			`{"sessionToken":"anything","messages":[{"role":"assistant","content":"hi"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "EMPTY_MESSAGE", body["code"])
		assert.Zero(t, relayer.calls)
	})

	t.Run("unknown session is invalid", func(t *testing.T) {
		relayer := &stubRelayer{reply: "x"}
		h := newTestRouter(t, relayer)

		rec, body := do(t, h, http.MethodPost, "/openclaw/chat",
			`{"messages":[{"role":"user","content":"hi"}]}`, "Authorization", "Bearer unknown")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "PAIRING_INVALID", body["code"])
		assert.Zero(t, relayer.calls)
	})

	t.Run("relay failures map to gateway statuses", func(t *testing.T) {
		relayer := &stubRelayer{err: &relay.Error{Kind: relay.KindIdleTimeout}}
		h := newTestRouter(t, relayer)

		_, issued := do(t, h, http.MethodPost, "/openclaw/pairings", `{"gatewayToken":"tok"}`,
			"Authorization", "Bearer "+operatorPassword)
		_, claimed := do(t, h, http.MethodPost, "/openclaw/pairings/claim", `{"code":"`+issued["code"].(string)+`"}`)

		rec, body := do(t, h, http.MethodPost, "/openclaw/chat",
			`{"sessionToken":"`+claimed["sessionToken"].(string)+`","messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, "IDLE_TIMEOUT", body["code"])
		assert.Equal(t, 1, relayer.calls)
	})
}

func TestFlexInt(t *testing.T) {
	cases := map[string]int{
		`600`:     600,
		`"600"`:   600,
		`599.6`:   600,
		`"abc"`:   0,
		`null`:    0,
		`true`:    0,
		`1e300`:   0,
		`" 42 "`:  42,
	}
	for input, want := range cases {
		var v flexInt
		require.NoError(t, json.Unmarshal([]byte(input), &v), input)
		assert.Equal(t, want, int(v), input)
	}
}
