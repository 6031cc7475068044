package chat_test

import (
	"context"
	"io"

	"github.com/omochice/whisper-chat/internal/chat"
)

// stubConn stands in for a relay connection. The hub only queues frames
// on Client.Outgoing and reads the remote address for logging.
type stubConn struct {
	addr string
}

func newStubConn(addr string) *stubConn {
	return &stubConn{addr: addr}
}

func (c *stubConn) Read(context.Context) ([]byte, error) {
	return nil, io.EOF
}

func (c *stubConn) Write(context.Context, []byte) error {
	return io.ErrClosedPipe
}

func (c *stubConn) Close() error {
	return nil
}

func (c *stubConn) RemoteAddr() string {
	return c.addr
}

var _ chat.Conn = (*stubConn)(nil)
