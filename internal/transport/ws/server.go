package ws

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const closeFrameTimeout = time.Second

// Upgrade upgrades an HTTP request and wraps the hijacked connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*ServerConn, error) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, err
	}
	return NewServerConn(conn), nil
}

// ServerConn adapts a hijacked net.Conn speaking websocket (gobwas/ws) to
// chat.Conn.
type ServerConn struct {
	conn    net.Conn
	writeMu sync.Mutex
}

// NewServerConn wraps a connection that already completed the upgrade.
func NewServerConn(conn net.Conn) *ServerConn {
	return &ServerConn{conn: conn}
}

// Read implements chat.Conn. Control frames are answered internally.
func (c *ServerConn) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if op == ws.OpText || op == ws.OpBinary {
			return data, nil
		}
	}
}

// Write implements chat.Conn. Cancelling ctx unblocks a write stuck on a
// peer that stopped reading.
func (c *ServerConn) Write(ctx context.Context, data []byte) error {
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

	err := wsutil.WriteServerText(c.conn, data)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Close implements chat.Conn. The close frame is only sent when no Write
// is in flight; closing the socket is what unblocks a stuck writer.
func (c *ServerConn) Close() error {
	if c.writeMu.TryLock() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeFrameTimeout))
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, body)
		c.writeMu.Unlock()
	}
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *ServerConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
