// Package server is a development relay that speaks the client wire
// protocol: sealed envelopes over websocket text frames.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omochice/whisper-chat/internal/chat"
	"github.com/omochice/whisper-chat/internal/transport/ws"
	"github.com/omochice/whisper-chat/pkg/protocol"
)

// MetricsPath serves Prometheus metrics. Every other path accepts
// websocket upgrades.
const MetricsPath = "/metrics"

const clientQueueSize = 16

// ErrServerStopped is returned by Start after Stop.
var ErrServerStopped = errors.New("server stopped")

// Server relays envelopes between identified clients.
type Server struct {
	address string
	codec   protocol.Sealer
	logger  *slog.Logger
	hub     *chat.Hub

	registry *prometheus.Registry
	metrics  *relayMetrics

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New creates a Server listening on address once started.
func New(address string, codec protocol.Sealer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	registry := prometheus.NewRegistry()
	return &Server{
		address:  address,
		codec:    codec,
		logger:   logger,
		hub:      chat.NewHub(logger),
		registry: registry,
		metrics:  newRelayMetrics(registry),
		ctx:      ctx,
		cancel:   cancel,
		quit:     make(chan struct{}),
	}
}

// Start listens and serves until Stop. It always returns a non-nil error.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", s.handleWebSocket)

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{Handler: mux}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("relay started", "addr", listener.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-s.quit:
		return ErrServerStopped
	}
}

// Stop closes the listener and every client connection, then waits for
// the client goroutines.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		close(s.quit)
		srv := s.server
		s.mu.Unlock()

		s.cancel()
		if srv != nil {
			srv.Close()
		}

		s.wg.Wait()
	})
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// Roster returns the identified users.
func (s *Server) Roster() []string {
	return s.hub.Roster()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("failed to upgrade connection",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		return
	}

	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		conn.Close()
		return
	default:
	}
	s.wg.Add(1)
	s.mu.Unlock()

	client := chat.NewClient(conn, clientQueueSize)
	s.hub.Register(client)
	s.metrics.connections.Inc()

	go s.handleClient(client)
}

func (s *Server) handleClient(client *chat.Client) {
	defer s.wg.Done()

	logger := s.logger.With("remote_addr", client.Conn.RemoteAddr())

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for data := range client.Outgoing {
			if err := client.Conn.Write(s.ctx, data); err != nil {
				logger.Warn("failed to send message", "error", err)
				// Keep draining so Broadcast never blocks on this client.
				continue
			}
		}
	}()

	defer func() {
		s.hub.Unregister(client)
		close(client.Outgoing)
		// Closing first frees a writer stuck on a client that stopped reading.
		client.Conn.Close()
		writer.Wait()
		s.metrics.connections.Dec()
		if userID := client.UserID(); userID != "" {
			logger.Info("user left", "user_id", userID)
		}
	}()

	for {
		data, err := client.Conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				logger.Debug("connection closed", "error", err)
			}
			return
		}

		env, err := protocol.Open(string(data), s.codec)
		if err != nil {
			s.metrics.frames.WithLabelValues("invalid").Inc()
			logger.Warn("dropping undecryptable frame", "error", err, "size", len(data))
			continue
		}
		s.metrics.frames.WithLabelValues(env.Code.String()).Inc()
		s.dispatch(client, env, logger)
	}
}

func (s *Server) dispatch(client *chat.Client, env protocol.Envelope, logger *slog.Logger) {
	switch env.Code {
	case protocol.CodeSetup:
		key := env.Data
		if key == "" {
			key = env.Key
		}
		client.Identify(env.UserID, key)
		logger.Info("user joined", "user_id", env.UserID)

	case protocol.CodeUsers:
		reply := protocol.NewUsers(env.UserID, env.Key)
		reply.Data = strings.Join(s.hub.Roster(), ",")
		s.reply(client, reply, logger)

	case protocol.CodeMessage:
		userID := client.UserID()
		if userID == "" {
			logger.Warn("dropping message before setup", "user_id", env.UserID)
			return
		}
		frame, err := protocol.Seal(protocol.NewMessage(userID, client.Key(), env.Text), s.codec)
		if err != nil {
			logger.Error("failed to seal message", "error", err)
			return
		}
		s.hub.Broadcast([]byte(frame))

	default:
		logger.Warn("ignoring unknown code", "code", env.Code)
	}
}

func (s *Server) reply(client *chat.Client, env protocol.Envelope, logger *slog.Logger) {
	frame, err := protocol.Seal(env, s.codec)
	if err != nil {
		logger.Error("failed to seal reply", "error", err)
		return
	}
	select {
	case client.Outgoing <- []byte(frame):
	default:
		logger.Warn("client queue full, dropping reply", "code", env.Code)
	}
}
