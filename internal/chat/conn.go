// Package chat holds the transport-agnostic pieces shared by the client
// session and the relay: the Conn abstraction and the relay's Hub.
package chat

import "context"

// Conn abstracts a bidirectional websocket connection on either side.
// This interface isolates transport details from session and relay logic.
type Conn interface {
	// Read reads a single text frame (a sealed envelope).
	// Returns io.EOF or a close error when the connection is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single text frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
