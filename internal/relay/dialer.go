package relay

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

const maxFrameBytes = 1 << 20 // 1MiB

// Dialer opens a message stream to a gateway.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a message-oriented duplex stream. Read returns a *CloseError when
// the peer closed the stream.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

// CloseError reports a peer close with its status code.
type CloseError struct {
	Code int
}

func (e *CloseError) Error() string {
	return "connection closed: " + websocket.StatusCode(e.Code).String()
}

// closeCodeOf maps a read error to a close code. Anything that is not a
// clean close frame is an abnormal closure.
func closeCodeOf(err error) int {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return int(websocket.StatusAbnormalClosure)
}

// WebSocketDialer dials gateways over WebSocket.
type WebSocketDialer struct {
	HTTPClient *http.Client
	ReadLimit  int64
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	limit := d.ReadLimit
	if limit <= 0 {
		limit = maxFrameBytes
	}
	conn.SetReadLimit(limit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		if code := websocket.CloseStatus(err); code != -1 {
			return nil, &CloseError{Code: int(code)}
		}
		return nil, err
	}
	if typ != websocket.MessageText {
		return nil, nil
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
