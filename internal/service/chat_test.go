package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
	"github.com/openclaw/pairing-relay-go/internal/model"
	"github.com/openclaw/pairing-relay-go/internal/relay"
)

type mockSessionResolver struct {
	mock.Mock
}

func (m *mockSessionResolver) ResolveSession(ctx context.Context, token string) (*ResolvedSession, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ResolvedSession), args.Error(1)
}

type mockRelayer struct {
	mock.Mock
}

func (m *mockRelayer) Send(ctx context.Context, req relay.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func chatMessages() []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.ChatRoleSystem, Content: "be brief"},
		{Role: model.ChatRoleUser, Content: "  hello  "},
	}
}

func TestChatService_RelayChat(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	session := &ResolvedSession{GatewayURL: "wss://example/gw", GatewayToken: "secret-1", AgentName: "a1", SessionExpiresAt: expires}

	t.Run("returns the reply with session info", func(t *testing.T) {
		sessions := new(mockSessionResolver)
		relayer := new(mockRelayer)
		sessions.On("ResolveSession", ctx, "tok").Return(session, nil)
		relayer.On("Send", ctx, mock.MatchedBy(func(req relay.Request) bool {
			return req.GatewayURL == "wss://example/gw" &&
				req.GatewayToken == "secret-1" &&
				req.AgentName == "a1" &&
				model.LastUserMessage(req.Messages) == "hello"
		})).Return("hi there", nil)

		svc := NewChatService(sessions, relayer, nil)
		res, err := svc.RelayChat(ctx, " tok ", chatMessages())
		require.NoError(t, err)
		assert.Equal(t, "hi there", res.Reply)
		assert.Equal(t, "a1", res.AgentName)
		assert.Equal(t, expires, res.SessionExpiresAt)

		sessions.AssertExpectations(t)
		relayer.AssertExpectations(t)
	})

	t.Run("missing token requires pairing", func(t *testing.T) {
		sessions := new(mockSessionResolver)
		relayer := new(mockRelayer)
		svc := NewChatService(sessions, relayer, nil)

		_, err := svc.RelayChat(ctx, "   ", chatMessages())
		assert.Equal(t, apperrors.ErrCodePairingRequired, apperrors.GetCode(err))
		sessions.AssertNotCalled(t, "ResolveSession", mock.Anything, mock.Anything)
	})

	t.Run("no user message fails before any connection", func(t *testing.T) {
		sessions := new(mockSessionResolver)
		relayer := new(mockRelayer)
		svc := NewChatService(sessions, relayer, nil)

		_, err := svc.RelayChat(ctx, "tok", []model.ChatMessage{
			{Role: model.ChatRoleSystem, Content: "be brief"},
			{Role: model.ChatRoleAssistant, Content: "hello"},
			{Role: "robot", Content: "beep"},
			{Role: model.ChatRoleUser, Content: "   "},
		})
		assert.Equal(t, apperrors.ErrCodeEmptyMessage, apperrors.GetCode(err))
		sessions.AssertNotCalled(t, "ResolveSession", mock.Anything, mock.Anything)
		relayer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("maps session failures to pairing errors", func(t *testing.T) {
		cases := map[apperrors.ErrorCode]apperrors.ErrorCode{
			apperrors.ErrCodeExpiredSession: apperrors.ErrCodePairingExpired,
			apperrors.ErrCodeInvalidSession: apperrors.ErrCodePairingInvalid,
		}
		for in, want := range cases {
			sessions := new(mockSessionResolver)
			relayer := new(mockRelayer)
			sessions.On("ResolveSession", ctx, "tok").Return(nil, apperrors.New(in, "x"))

			_, err := NewChatService(sessions, relayer, nil).RelayChat(ctx, "tok", chatMessages())
			assert.Equal(t, want, apperrors.GetCode(err))
			relayer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		}
	})

	t.Run("store outage passes through", func(t *testing.T) {
		sessions := new(mockSessionResolver)
		sessions.On("ResolveSession", ctx, "tok").Return(nil, apperrors.Database(errors.New("down")))

		_, err := NewChatService(sessions, new(mockRelayer), nil).RelayChat(ctx, "tok", chatMessages())
		assert.Equal(t, apperrors.ErrCodeDatabase, apperrors.GetCode(err))
	})

	relayCases := []struct {
		name   string
		err    error
		code   apperrors.ErrorCode
		detail string
	}{
		{"auth failure keeps the gateway reason", &relay.Error{Kind: relay.KindAuthFailed, Detail: "bad token"}, apperrors.ErrCodeAuthFailed, "bad token"},
		{"protocol error keeps the gateway reason", &relay.Error{Kind: relay.KindProtocol, Detail: strings.Repeat("x", 500)}, apperrors.ErrCodeProtocol, strings.Repeat("x", 240)},
		{"closed carries the close code", &relay.Error{Kind: relay.KindClosed, CloseCode: 1006}, apperrors.ErrCodeClosed, "close code 1006"},
		{"incomplete close carries the close code", &relay.Error{Kind: relay.KindIncompleteClose, CloseCode: 1000}, apperrors.ErrCodeIncompleteClose, "close code 1000"},
		{"timeout hides the gateway address", &relay.Error{Kind: relay.KindTimeout, Detail: "wss://example/gw"}, apperrors.ErrCodeTimeout, ""},
		{"idle timeout", &relay.Error{Kind: relay.KindIdleTimeout}, apperrors.ErrCodeIdleTimeout, ""},
		{"connect failure", &relay.Error{Kind: relay.KindConnectFailed, Detail: "wss://example/gw"}, apperrors.ErrCodeConnectFailed, ""},
		{"empty response", &relay.Error{Kind: relay.KindEmptyResponse}, apperrors.ErrCodeEmptyResponse, ""},
		{"unexpected failure is internal", errors.New("boom"), apperrors.ErrCodeInternal, "boom"},
	}
	for _, tc := range relayCases {
		t.Run("maps relay "+tc.name, func(t *testing.T) {
			sessions := new(mockSessionResolver)
			relayer := new(mockRelayer)
			sessions.On("ResolveSession", ctx, "tok").Return(session, nil)
			relayer.On("Send", ctx, mock.Anything).Return("", tc.err)

			_, err := NewChatService(sessions, relayer, nil).RelayChat(ctx, "tok", chatMessages())
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, appErr.Code)
			if tc.detail == "" {
				assert.Nil(t, appErr.Details)
			} else {
				assert.Equal(t, map[string]string{"detail": tc.detail}, appErr.Details)
			}
		})
	}
}
