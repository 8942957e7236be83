package relay

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	ProtocolVersion = 3
	ClientID        = "gateway-client"
	ClientPlatform  = "web"
	ClientMode      = "site"
	OperatorRole    = "operator"

	frameTypeEvent    = "event"
	frameTypeRequest  = "req"
	frameTypeResponse = "res"

	eventConnectChallenge = "connect.challenge"
	methodConnect         = "connect"
	methodChatSend        = "chat.send"
	payloadHelloOK        = "hello-ok"

	noResponsePlaceholder = "(no response)"
	defaultAuthFailure    = "Authentication failed"
	defaultAgentFailure   = "Agent request failed"
)

var operatorScopes = []string{"operator.read", "operator.write"}

// frame is any inbound gateway message.
type frame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	ID      string          `json:"id,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *frameError     `json:"error,omitempty"`
}

type frameError struct {
	Message json.RawMessage `json:"message"`
	Code    json.RawMessage `json:"code"`
}

// reason returns the error message, else the code, else fallback.
func (e *frameError) reason(fallback string) string {
	if e == nil {
		return fallback
	}
	if s := rawText(e.Message); s != "" {
		return s
	}
	if s := rawText(e.Code); s != "" {
		return s
	}
	return fallback
}

func rawText(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return s
	}
	v := strings.TrimSpace(string(raw))
	if v == "null" || v == "false" || v == `""` {
		return ""
	}
	return v
}

func (f *frame) isOK() bool    { return f.OK != nil && *f.OK }
func (f *frame) isError() bool { return f.OK != nil && !*f.OK }

type request struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type clientInfo struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Mode     string `json:"mode"`
}

type connectParams struct {
	MinProtocol int        `json:"minProtocol"`
	MaxProtocol int        `json:"maxProtocol"`
	Client      clientInfo `json:"client"`
	Role        string     `json:"role"`
	Scopes      []string   `json:"scopes"`
	Auth        struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type chatSendParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func frameID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

func connectRequest(token, clientVersion string) request {
	params := connectParams{
		MinProtocol: ProtocolVersion,
		MaxProtocol: ProtocolVersion,
		Client: clientInfo{
			ID:       ClientID,
			Version:  clientVersion,
			Platform: ClientPlatform,
			Mode:     ClientMode,
		},
		Role:   OperatorRole,
		Scopes: operatorScopes,
	}
	params.Auth.Token = token
	return request{
		Type:   frameTypeRequest,
		ID:     frameID("connect"),
		Method: methodConnect,
		Params: params,
	}
}

func chatSendRequest(sessionKey, message string) request {
	return request{
		Type:   frameTypeRequest,
		ID:     frameID("chat"),
		Method: methodChatSend,
		Params: chatSendParams{
			SessionKey:     sessionKey,
			Message:        message,
			IdempotencyKey: uuid.NewString(),
		},
	}
}
