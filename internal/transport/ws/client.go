// Package ws provides the websocket transports behind chat.Conn: a
// gorilla/websocket client used by the session, and a gobwas/ws server
// side used by the relay. Frames are always text.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/whisper-chat/internal/chat"
)

// DefaultHandshakeTimeout bounds the opening handshake when the context
// carries no deadline.
const DefaultHandshakeTimeout = 10 * time.Second

// Dialer opens client connections.
type Dialer struct {
	// HandshakeTimeout bounds the opening handshake.
	// Default: DefaultHandshakeTimeout
	HandshakeTimeout time.Duration

	// Header is sent with the handshake request.
	Header http.Header
}

// Dial connects to url and returns the connection as a chat.Conn.
func (d *Dialer) Dial(ctx context.Context, url string) (chat.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < dialer.HandshakeTimeout {
			dialer.HandshakeTimeout = remaining
		}
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewClientConn(conn), nil
}

// ClientConn adapts a gorilla/websocket connection to chat.Conn. Reads and
// writes may run concurrently with each other, but writes are serialized.
type ClientConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewClientConn wraps an established gorilla/websocket connection.
func NewClientConn(conn *websocket.Conn) *ClientConn {
	return &ClientConn{conn: conn}
}

// Read implements chat.Conn. Cancelling ctx unblocks an in-flight read by
// expiring the read deadline.
func (c *ClientConn) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	var active atomic.Bool
	active.Store(true)
	stop := context.AfterFunc(ctx, func() {
		if active.Load() {
			_ = c.conn.SetReadDeadline(time.Now())
		}
	})
	defer func() {
		active.Store(false)
		stop()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// Write implements chat.Conn. Cancelling ctx unblocks a write stuck on a
// peer that stopped reading.
func (c *ClientConn) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	err := c.conn.WriteMessage(websocket.TextMessage, data)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Close implements chat.Conn. It sends a close frame before closing the
// underlying connection. It does not wait for an in-flight Write.
func (c *ClientConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *ClientConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
