// Package session owns the single websocket connection of the client: it
// connects, identifies, receives, reconnects after a fixed delay, and
// accepts outbound envelopes from the UI without blocking it.
//
// One goroutine runs the connect/receive/backoff loop and a second one,
// per connection, performs every socket write. Send only seals the
// envelope and queues the frame for that writer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/omochice/whisper-chat/internal/chat"
	"github.com/omochice/whisper-chat/internal/identity"
	"github.com/omochice/whisper-chat/pkg/protocol"
)

// DefaultBackoff is the fixed delay between connection attempts.
const DefaultBackoff = 5 * time.Second

// outboxSize bounds the frames queued for the writer of one connection.
const outboxSize = 64

var (
	// ErrTransport wraps dial, read and write failures. It always leads to
	// a reconnect, never to a fault surfaced to the UI.
	ErrTransport = errors.New("transport error")

	// ErrNotConnected is returned by Send when the frame was dropped
	// because no connection is established.
	ErrNotConnected = errors.New("not connected to server")

	// ErrOutboxFull is returned by Send when the writer is too far behind.
	ErrOutboxFull = errors.New("outbound queue full")
)

// Dialer opens a transport connection to url.
type Dialer interface {
	Dial(ctx context.Context, url string) (chat.Conn, error)
}

// Options configures a Manager.
type Options struct {
	// URL is the backend websocket endpoint.
	URL string

	// Identity tags every outbound envelope.
	Identity identity.Identity

	// Codec seals outbound and opens inbound frames.
	Codec protocol.Sealer

	// Dialer opens connections.
	Dialer Dialer

	// Clock drives the reconnect delay.
	// Default: clockwork.NewRealClock()
	Clock clockwork.Clock

	// Logger receives session events.
	// Default: slog.Default()
	Logger *slog.Logger

	// Backoff is the fixed delay between attempts.
	// Default: DefaultBackoff
	Backoff time.Duration

	// OnMessage receives each decrypted inbound frame, in order, on the
	// session goroutine. It must not block for long; UI layers should
	// hand the text to their own event queue.
	OnMessage func(plaintext string)

	// OnState is called after every state transition, on the goroutine
	// that made it.
	OnState func(State)

	// Metrics receives counters.
	Metrics Metrics
}

// Manager maintains one logical connection to the backend.
type Manager struct {
	url       string
	identity  identity.Identity
	codec     protocol.Sealer
	dialer    Dialer
	clock     clockwork.Clock
	logger    *slog.Logger
	backoff   time.Duration
	onMessage func(string)
	onState   func(State)
	metrics   Metrics

	state atomic.Int32

	mu      sync.Mutex
	outbox  chan string
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Manager. Call Start to begin connecting.
func New(opts Options) *Manager {
	m := &Manager{
		url:       opts.URL,
		identity:  opts.Identity,
		codec:     opts.Codec,
		dialer:    opts.Dialer,
		clock:     opts.Clock,
		logger:    opts.Logger,
		backoff:   opts.Backoff,
		onMessage: opts.OnMessage,
		onState:   opts.OnState,
		metrics:   opts.Metrics,
		done:      make(chan struct{}),
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.backoff <= 0 {
		m.backoff = DefaultBackoff
	}
	if m.onMessage == nil {
		m.onMessage = func(string) {}
	}
	if m.onState == nil {
		m.onState = func(State) {}
	}
	if m.metrics == nil {
		m.metrics = nopMetrics{}
	}
	m.logger = m.logger.With("url", m.url, "user_id", m.identity.UserID)
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Start begins the connect/receive loop on its own goroutine. Calling it
// again, or after Stop, does nothing.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

// Stop closes the connection, cancels a pending retry and waits for the
// session goroutines to exit. The Manager cannot be restarted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	if started {
		<-m.done
	} else {
		m.setState(Stopped)
	}
}

// Send seals env and queues it for the writer. UserID and Key are always
// taken from the session identity. When the session is not connected the
// frame is dropped and ErrNotConnected is returned; nothing is queued for
// a later connection.
func (m *Manager) Send(env protocol.Envelope) error {
	env.UserID = m.identity.UserID
	env.Key = m.identity.Key

	frame, err := protocol.Seal(env, m.codec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	outbox := m.outbox
	m.mu.Unlock()

	if outbox == nil {
		m.metrics.SendDropped()
		m.logger.Info("dropping send while disconnected", "code", env.Code)
		return ErrNotConnected
	}

	select {
	case outbox <- frame:
		return nil
	default:
		m.metrics.SendDropped()
		m.logger.Warn("dropping send, outbound queue full", "code", env.Code)
		return ErrOutboxFull
	}
}

// SendText sends a chat message.
func (m *Manager) SendText(text string) error {
	return m.Send(protocol.NewMessage(m.identity.UserID, m.identity.Key, text))
}

// RequestUsers asks the backend for the roster.
func (m *Manager) RequestUsers() error {
	return m.Send(protocol.NewUsers(m.identity.UserID, m.identity.Key))
}

func (m *Manager) setState(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	m.onState(s)
}

// run is the session goroutine: connect, receive until the connection
// fails, wait the fixed backoff, repeat until the context is cancelled.
func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.setState(Stopped)

	for {
		err := m.runConnection(ctx)
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("connection lost, retrying",
			"error", err,
			"backoff", m.backoff,
		)

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.backoff):
		}
	}
}

// runConnection dials once and serves the connection until it fails.
// It always leaves the state at Disconnected.
func (m *Manager) runConnection(ctx context.Context) error {
	m.setState(Connecting)

	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.metrics.DialFailed()
		m.setState(Disconnected)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	m.metrics.Connected()
	m.logger.Info("connected", "remote_addr", conn.RemoteAddr())

	connCtx, cancel := context.WithCancel(ctx)

	setup, err := protocol.Seal(protocol.NewSetup(m.identity.UserID, m.identity.Key), m.codec)
	if err != nil {
		cancel()
		conn.Close()
		m.setState(Disconnected)
		return err
	}

	// setup is queued before the outbox is published, so it is always the
	// first frame written on a connection.
	outbox := make(chan string, outboxSize)
	outbox <- setup

	var writeErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writeErr = m.writeLoop(connCtx, conn, outbox)
		cancel()
	}()

	m.mu.Lock()
	m.outbox = outbox
	m.mu.Unlock()
	m.setState(Connected)

	readErr := m.readLoop(connCtx, conn)

	m.mu.Lock()
	m.outbox = nil
	m.mu.Unlock()

	cancel()
	conn.Close()
	wg.Wait()
	m.setState(Disconnected)

	if dropped := len(outbox); dropped > 0 {
		m.logger.Warn("discarding unsent frames", "count", dropped)
	}
	if writeErr != nil {
		return fmt.Errorf("%w: failed to send message: %v", ErrTransport, writeErr)
	}
	return fmt.Errorf("%w: %v", ErrTransport, readErr)
}

// writeLoop is the only code that writes to conn.
func (m *Manager) writeLoop(ctx context.Context, conn chat.Conn, outbox <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-outbox:
			if err := conn.Write(ctx, []byte(frame)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			m.metrics.Sent()
		}
	}
}

// readLoop delivers frames to onMessage until the connection fails. A
// frame that fails to decrypt is logged and skipped.
func (m *Manager) readLoop(ctx context.Context, conn chat.Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		plaintext, err := m.codec.Decrypt(string(data))
		if err != nil {
			m.metrics.FrameDropped()
			m.logger.Warn("dropping undecryptable frame",
				"error", err,
				"size", len(data),
			)
			continue
		}

		m.metrics.FrameReceived()
		m.onMessage(plaintext)
	}
}
