package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
	"github.com/openclaw/pairing-relay-go/internal/httputil"
	"github.com/openclaw/pairing-relay-go/internal/middleware"
	"github.com/openclaw/pairing-relay-go/internal/service"
)

type Middleware = func(http.Handler) http.Handler

type PairingHandler struct {
	pairingService *service.PairingService
}

func NewPairingHandler(pairingService *service.PairingService) *PairingHandler {
	return &PairingHandler{pairingService: pairingService}
}

// Routes mounts under /openclaw. operatorAuth guards direct issuance and
// limit throttles the endpoints an anonymous client can hit.
func (h *PairingHandler) Routes(operatorAuth, limit Middleware) chi.Router {
	r := chi.NewRouter()

	r.With(limit).Post("/pairings/requests", h.CreateRequest)
	r.With(operatorAuth).Post("/pairings", h.Issue)
	r.With(limit).Post("/pairings/from-request", h.IssueFromRequest)
	r.With(limit).Post("/pairings/claim", h.Claim)
	r.With(limit).Get("/session", h.Session)

	return r
}

type issueRequest struct {
	GatewayURL   flexString `json:"gatewayUrl"`
	GatewayToken flexString `json:"gatewayToken"`
	AgentName    flexString `json:"agentName"`
	TTLSeconds   flexInt    `json:"ttlSeconds"`
	MaxClaims    flexInt    `json:"maxClaims"`
	RequestCode  flexString `json:"requestCode"`
}

func (req issueRequest) params() service.IssueParams {
	return service.IssueParams{
		GatewayURL:   string(req.GatewayURL),
		GatewayToken: string(req.GatewayToken),
		AgentName:    string(req.AgentName),
		TTLSeconds:   int(req.TTLSeconds),
		MaxClaims:    int(req.MaxClaims),
	}
}

// POST /openclaw/pairings/requests
func (h *PairingHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TTLSeconds flexInt `json:"ttlSeconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pairingService.CreatePairingRequest(r.Context(), int(req.TTLSeconds))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// POST /openclaw/pairings
// Operator issuance with a known gateway credential.
func (h *PairingHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pairingService.CreatePairingCode(r.Context(), req.params())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// POST /openclaw/pairings/from-request
// The gateway owner redeems a request code it was shown.
func (h *PairingHandler) IssueFromRequest(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.RequestCode == "" {
		httputil.WriteError(w, apperrors.InvalidRequestCode())
		return
	}

	result, err := h.pairingService.CreatePairingCodeFromRequest(r.Context(), string(req.RequestCode), req.params())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// POST /openclaw/pairings/claim
func (h *PairingHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code              flexString `json:"code"`
		SessionTTLSeconds flexInt    `json:"sessionTtlSeconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pairingService.ClaimPairingCode(r.Context(), string(req.Code), int(req.SessionTTLSeconds))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GET /openclaw/session
// Reports whether the bearer session is still usable without revealing the gateway.
func (h *PairingHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		httputil.WriteError(w, apperrors.PairingRequired())
		return
	}

	session, err := h.pairingService.ResolveSession(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"agentName":        session.AgentName,
		"sessionExpiresAt": session.SessionExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}
