// Package notifications delivers live events to connected users over
// WebSocket and relays them between API instances through Redis pub/sub.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"nodeback/internal/middleware"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	hubName = "notifications"

	MaxConnsPerUser = 12
	MaxTotalConns   = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
)

// Hub groups live connections by user id.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	presence   *ConnectionManager
	closed     bool
}

// NewHub creates a hub. With a Redis client, presence is mirrored to Redis
// so other instances see the same online set.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		presence: NewConnectionManager(rdb, ConnectionManagerConfig{}),
	}
}

// SetPresenceCallbacks installs the online/offline transition hooks.
func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Register adds a connection to the user's group.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed || h.totalConns >= MaxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerConnLimit
	}
	group, ok := h.conns[userID]
	if !ok {
		group = make(map[*Client]struct{})
		h.conns[userID] = group
	}
	if len(group) >= MaxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserConnLimit
	}
	client := newClient(h, conn, userID)
	group[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	middleware.ActiveWebSockets.Inc()
	h.presence.Register(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes the connection and closes its send queue. It is
// safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if group, ok := h.conns[client.UserID]; ok {
		if _, exists := group[client]; exists {
			delete(group, client)
			close(client.Send)
			h.totalConns--
			removed = true
		}
		if len(group) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		middleware.ActiveWebSockets.Dec()
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

func (h *Hub) touch(userID uint) {
	h.presence.Touch(context.Background(), userID)
}

// Deliver queues message on every connection of userID and returns how many
// connections accepted it.
func (h *Hub) Deliver(userID uint, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.conns[userID] {
		if c.TrySend(message) {
			sent++
		}
	}
	return sent
}

// ConnectionCount returns the number of live connections of userID.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// IsOnline reports local connections or, with Redis, a fresh last-seen mark.
func (h *Hub) IsOnline(userID uint) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// StartWiring forwards every message published on a user channel to that
// user's local connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, func(channel, payload string) {
		userID, ok := parseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Deliver(userID, []byte(payload))
	})
}

func parseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Shutdown sends a going-away close frame to every connection and refuses
// new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.presence.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for userID, group := range h.conns {
		for client := range group {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Debug("close frame failed",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()),
				)
			}
			_ = client.Conn.Close()
		}
	}
	middleware.ActiveWebSockets.Sub(float64(h.totalConns))
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
