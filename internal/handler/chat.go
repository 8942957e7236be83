package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openclaw/pairing-relay-go/internal/httputil"
	"github.com/openclaw/pairing-relay-go/internal/middleware"
	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Routes(limit Middleware) chi.Router {
	r := chi.NewRouter()
	r.With(limit).Post("/", h.Chat)
	return r
}

type chatMessage struct {
	Role    flexString `json:"role"`
	Content flexString `json:"content"`
}

// chatMessages tolerates a missing or malformed list and non-object entries;
// coercion downstream drops whatever is left empty.
type chatMessages []chatMessage

func (c *chatMessages) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = nil
		return nil
	}
	out := make(chatMessages, 0, len(raw))
	for _, item := range raw {
		var m chatMessage
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	*c = out
	return nil
}

// POST /openclaw/chat
// The session token comes from the body or, failing that, a bearer header.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken flexString    `json:"sessionToken"`
		Messages     chatMessages `json:"messages"`
	}
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token := string(req.SessionToken)
	if token == "" {
		token = middleware.BearerToken(r)
	}

	messages := make([]model.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, model.ChatMessage{
			Role:    model.ChatRole(m.Role),
			Content: string(m.Content),
		})
	}

	result, err := h.chatService.RelayChat(r.Context(), token, messages)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
