package chat

import (
	"log/slog"
	"sort"
	"sync"
)

// Client represents a connected identity with a transport-agnostic
// connection. UserID and Key are empty until the client sends setup.
type Client struct {
	Conn     Conn
	Outgoing chan []byte

	mu     sync.RWMutex
	userID string
	key    string
}

// NewClient wraps conn with an outgoing queue of the given size.
func NewClient(conn Conn, queue int) *Client {
	return &Client{
		Conn:     conn,
		Outgoing: make(chan []byte, queue),
	}
}

// Identify records the identity announced by a setup envelope.
func (c *Client) Identify(userID, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.key = key
}

// UserID returns the identified user, or "" before setup.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Key returns the identified machine key, or "" before setup.
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// Hub tracks connected clients and fans frames out to them.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Roster returns the sorted, de-duplicated user ids of identified clients.
func (h *Hub) Roster() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	roster := make([]string, 0, len(h.clients))
	for client := range h.clients {
		userID := client.UserID()
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		roster = append(roster, userID)
	}
	sort.Strings(roster)
	return roster
}

// Broadcast queues data on every identified client. A client whose queue
// is full misses the frame rather than stalling the others.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.UserID() == "" {
			continue
		}
		select {
		case client.Outgoing <- data:
		default:
			h.logger.Warn("client queue full, dropping frame",
				"remote_addr", client.Conn.RemoteAddr(),
				"user_id", client.UserID(),
			)
		}
	}
}
