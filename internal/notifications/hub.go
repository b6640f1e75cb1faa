package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"socialnet/internal/middleware"
	"socialnet/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	// ErrServerFull is returned by Register when the hub is at capacity.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrUserLimit is returned by Register when a user has too many connections.
	ErrUserLimit = errors.New("user connection limit reached")
)

// Hub is a websocket hub that maps userID -> set of Clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	logger     *slog.Logger
	closed     bool
}

// NewHub creates a new Hub instance for managing notifications.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[uint]map[*Client]struct{}),
		logger: observability.ServiceLogger(middleware.OrDefault(logger), "notification_hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notification hub" }

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserLimit
	}

	client := NewClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient removes client from the hub. Calling it twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		h.totalConns--
		observability.WebSocketConnectionsTotal.Dec()
		client.closeSend()
	}
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Broadcast sends message to all connections for userID
func (h *Hub) Broadcast(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(message)
		}
	}
}

// ConnectionCount returns the number of open connections for userID.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Dispatch routes a message received on channel to the matching connections.
func (h *Hub) Dispatch(channel, payload string) {
	if channel == broadcastChannel {
		h.BroadcastAll([]byte(payload))
		return
	}
	userID, ok := ParseUserChannel(channel)
	if !ok {
		h.logger.Warn("invalid notification channel", slog.String("channel", channel))
		return
	}
	h.Broadcast(userID, []byte(payload))
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// patterns and forwards messages to matching userID connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.Dispatch)
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	// Closing the send channel makes each WritePump send a close frame and exit.
	for _, userConns := range h.conns {
		for client := range userConns {
			client.closeSend()
		}
		observability.WebSocketConnectionsTotal.Sub(float64(len(userConns)))
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
