package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
	"github.com/openclaw/pairing-relay-go/internal/metrics"
	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/relay"
	"github.com/openclaw/pairing-relay-go/internal/util"
)

const maxErrorDetail = 240

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*ResolvedSession, error)
}

type Relayer interface {
	Send(ctx context.Context, req relay.Request) (string, error)
}

type ChatResult struct {
	Reply            string    `json:"reply"`
	AgentName        string    `json:"agentName"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt"`
}

type ChatService struct {
	sessions SessionResolver
	relay    Relayer
	metrics  *metrics.Metrics
}

func NewChatService(sessions SessionResolver, relayer Relayer, m *metrics.Metrics) *ChatService {
	return &ChatService{sessions: sessions, relay: relayer, metrics: m}
}

var relayErrorCodes = map[relay.Kind]apperrors.ErrorCode{
	relay.KindInvalidGatewayURL: apperrors.ErrCodeInvalidGatewayURL,
	relay.KindMissingToken:      apperrors.ErrCodeMissingToken,
	relay.KindConnectFailed:     apperrors.ErrCodeConnectFailed,
	relay.KindTimeout:           apperrors.ErrCodeTimeout,
	relay.KindIdleTimeout:       apperrors.ErrCodeIdleTimeout,
	relay.KindAuthFailed:        apperrors.ErrCodeAuthFailed,
	relay.KindEmptyMessage:      apperrors.ErrCodeEmptyMessage,
	relay.KindClosed:            apperrors.ErrCodeClosed,
	relay.KindIncompleteClose:   apperrors.ErrCodeIncompleteClose,
	relay.KindEmptyResponse:     apperrors.ErrCodeEmptyResponse,
	relay.KindProtocol:          apperrors.ErrCodeProtocol,
}

var relayErrorMessages = map[relay.Kind]string{
	relay.KindInvalidGatewayURL: "Paired gateway address is invalid",
	relay.KindMissingToken:      "Paired gateway credential is missing",
	relay.KindConnectFailed:     "Gateway is unreachable",
	relay.KindTimeout:           "Gateway did not answer in time",
	relay.KindIdleTimeout:       "Gateway stopped responding",
	relay.KindAuthFailed:        "Gateway rejected the credential",
	relay.KindEmptyMessage:      "Message is empty",
	relay.KindClosed:            "Gateway closed the connection",
	relay.KindIncompleteClose:   "Gateway closed before finishing the reply",
	relay.KindEmptyResponse:     "Gateway returned no reply",
	relay.KindProtocol:          "Gateway rejected the request",
}

// RelayChat resolves the session, sends the latest user message to the
// paired gateway and returns its reply. It is the only place relay and store
// failures are translated into boundary error codes.
func (s *ChatService) RelayChat(ctx context.Context, sessionToken string, messages []model.ChatMessage) (*ChatResult, error) {
	token := util.SanitizeSessionToken(sessionToken)
	if token == "" {
		return nil, apperrors.PairingRequired()
	}

	messages = model.CoerceChatMessages(messages)
	if model.LastUserMessage(messages) == "" {
		return nil, apperrors.EmptyMessage()
	}

	session, err := s.sessions.ResolveSession(ctx, token)
	if err != nil {
		switch apperrors.GetCode(err) {
		case apperrors.ErrCodeExpiredSession:
			return nil, apperrors.PairingExpired()
		case apperrors.ErrCodeInvalidSession:
			return nil, apperrors.PairingInvalid()
		}
		return nil, err
	}

	start := time.Now()
	reply, err := s.relay.Send(ctx, relay.Request{
		GatewayURL:   session.GatewayURL,
		GatewayToken: session.GatewayToken,
		AgentName:    session.AgentName,
		Messages:     messages,
	})
	elapsed := time.Since(start)
	if err != nil {
		appErr := relayFailure(err)
		s.metrics.ObserveRelay(string(relay.KindOf(err)), elapsed)
		log.Warn().
			Err(err).
			Str("code", string(appErr.Code)).
			Str("agentName", session.AgentName).
			Dur("elapsed", elapsed).
			Msg("relay exchange failed")
		return nil, appErr
	}
	s.metrics.ObserveRelay("ok", elapsed)

	log.Info().
		Str("agentName", session.AgentName).
		Int("replyLength", len(reply)).
		Dur("elapsed", elapsed).
		Msg("relay exchange completed")

	return &ChatResult{
		Reply:            reply,
		AgentName:        session.AgentName,
		SessionExpiresAt: session.SessionExpiresAt,
	}, nil
}

func relayFailure(err error) *apperrors.AppError {
	var re *relay.Error
	if !errors.As(err, &re) {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "Relay failed", err).
			WithDetails(map[string]string{"detail": errorDetail(err.Error())})
	}
	code, ok := relayErrorCodes[re.Kind]
	if !ok {
		code = apperrors.ErrCodeInternal
	}
	appErr := apperrors.Wrap(code, relayErrorMessages[re.Kind], err)

	// Only gateway supplied reasons and close codes are passed on; other
	// details carry the gateway address, which stays server side.
	var detail string
	switch re.Kind {
	case relay.KindAuthFailed, relay.KindProtocol:
		detail = errorDetail(re.Detail)
	case relay.KindClosed, relay.KindIncompleteClose:
		detail = fmt.Sprintf("close code %d", re.CloseCode)
	}
	if detail != "" {
		appErr = appErr.WithDetails(map[string]string{"detail": detail})
	}
	return appErr
}

func errorDetail(s string) string {
	return util.Truncate(strings.TrimSpace(s), maxErrorDetail)
}
