package http

import (
	"context"
	"fmt"

	"github.com/coder/websocket"

	"github.com/vovakirdan/chantalk-server/internal/core"
)

// wsConn adapts *websocket.Conn to core.Conn, carrying only text frames.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// Receive blocks until the next text frame arrives. Binary frames are
// rejected as a protocol error.
func (c *wsConn) Receive(ctx context.Context) (string, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	if typ != websocket.MessageText {
		return "", fmt.Errorf("unexpected message type %v", typ)
	}
	return string(data), nil
}

// Send writes one text frame.
func (c *wsConn) Send(ctx context.Context, text string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(text))
}

// Close performs the websocket close handshake with the given status.
func (c *wsConn) Close(status core.CloseStatus, reason string) error {
	return c.conn.Close(websocket.StatusCode(status), reason)
}
