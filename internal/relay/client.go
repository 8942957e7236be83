package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/pairing-relay-go/internal/model"
)

const (
	DefaultTimeout     = 70 * time.Second
	DefaultIdleTimeout = 20 * time.Second
	DefaultVersion     = "1.0.0"
)

// Request is one chat turn relayed to a gateway.
type Request struct {
	GatewayURL   string
	GatewayToken string
	AgentName    string
	Messages     []model.ChatMessage
}

// Client runs relay exchanges. It holds no per-exchange state and is safe for
// concurrent use.
type Client struct {
	dialer        Dialer
	timeout       time.Duration
	idleTimeout   time.Duration
	clientVersion string
}

type Option func(*Client)

func WithTimeouts(overall, idle time.Duration) Option {
	return func(c *Client) {
		if overall > 0 {
			c.timeout = overall
		}
		if idle > 0 {
			c.idleTimeout = idle
		}
	}
}

func WithClientVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.clientVersion = version
		}
	}
}

func NewClient(dialer Dialer, opts ...Option) *Client {
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	c := &Client{
		dialer:        dialer,
		timeout:       DefaultTimeout,
		idleTimeout:   DefaultIdleTimeout,
		clientVersion: DefaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type readResult struct {
	data []byte
	err  error
}

// Send relays the latest user message to the gateway and waits for the
// reply. Failures are returned as *Error. Cancelling ctx settles the
// exchange as a timeout.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	url, err := NormalizeGatewayURL(req.GatewayURL)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(req.GatewayToken)
	if token == "" {
		return "", newError(KindMissingToken, "")
	}
	message := model.LastUserMessage(req.Messages)
	if message == "" {
		return "", newError(KindEmptyMessage, "")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, url)
	if err != nil {
		return "", err
	}

	x := newExchange(token, message, SessionKey(req.AgentName), c.clientVersion)

	readCtx, stopRead := context.WithCancel(ctx)
	inbox := readLoop(readCtx, conn)
	res, peerClosed := c.loop(ctx, conn, x, url, inbox)

	// Close before stopping the reader: cancelling a blocked read tears the
	// connection down without a close frame.
	if !peerClosed {
		if res.err == nil {
			_ = conn.Close(int(websocket.StatusNormalClosure), "done")
		} else {
			_ = conn.Close(int(websocket.StatusInternalError), "error")
		}
	}
	stopRead()

	if res.err != nil {
		log.Debug().Err(res.err).Str("gateway", url).Msg("relay exchange failed")
		return "", res.err
	}
	return res.reply, nil
}

// dial opens the connection. Connecting counts against the idle clock too.
func (c *Client) dial(ctx context.Context, url string) (Conn, error) {
	dialCtx, dialCancel := context.WithTimeout(ctx, c.idleTimeout)
	defer dialCancel()

	conn, err := c.dialer.Dial(dialCtx, url)
	if err == nil {
		return conn, nil
	}
	switch {
	case ctx.Err() != nil:
		return nil, &Error{Kind: KindTimeout, Detail: url, cause: err}
	case errors.Is(dialCtx.Err(), context.DeadlineExceeded):
		return nil, &Error{Kind: KindIdleTimeout, Detail: url, cause: err}
	}
	return nil, &Error{Kind: KindConnectFailed, Detail: url, cause: err}
}

func readLoop(ctx context.Context, conn Conn) <-chan readResult {
	inbox := make(chan readResult)
	go func() {
		for {
			data, err := conn.Read(ctx)
			select {
			case inbox <- readResult{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return inbox
}

// loop drives the exchange until it settles. It reports whether the peer
// closed the connection.
func (c *Client) loop(ctx context.Context, conn Conn, x *exchange, url string, inbox <-chan readResult) (*outcome, bool) {
	idle := time.NewTimer(c.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return x.fail(newError(KindTimeout, url)), false

		case <-idle.C:
			if res := x.onIdle(); res != nil {
				return res, false
			}

		case r := <-inbox:
			idle.Reset(c.idleTimeout)
			if r.err != nil {
				if ctx.Err() != nil {
					return x.fail(newError(KindTimeout, url)), true
				}
				return x.onClose(closeCodeOf(r.err)), true
			}
			out, res := x.onFrame(r.data)
			if out != nil {
				if err := writeFrame(ctx, conn, out); err != nil {
					return x.fail(&Error{Kind: KindConnectFailed, Detail: url, cause: err}), false
				}
			}
			if res != nil {
				return res, false
			}
		}
	}
}

func writeFrame(ctx context.Context, conn Conn, req *request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.Write(ctx, b)
}
