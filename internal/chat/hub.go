package chat

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/umar/campus-chat/internal/models"
)

// Presence tracks who is connected to a room across instances.
type Presence interface {
	Join(ctx context.Context, roomID, name string) error
	Leave(ctx context.Context, roomID, name string) error
	Members(ctx context.Context, roomID string) ([]string, error)
}

type HubOptions struct {
	// MessagesPerSecond and Burst bound inbound frames per connection.
	// Zero disables limiting.
	MessagesPerSecond float64
	Burst             int
	// MaxContentLength bounds message text in characters; frames are capped
	// at four bytes per character.
	MaxContentLength int
}

// Hub owns the websocket sessions of this instance.
type Hub struct {
	registry *Registry
	service  *Service
	presence Presence
	opts     HubOptions
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub(registry *Registry, service *Service, presence Presence, opts HubOptions, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: registry,
		service:  service,
		presence: presence,
		opts:     opts,
		logger:   logger.With("component", "hub"),
		ctx:      ctx,
		cancel:   cancel,
		clients:  make(map[*Client]struct{}),
	}
}

// connect registers c unless the hub is shutting down.
func (h *Hub) connect(c *Client) bool {
	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.registry.Register(c, c.roomID)
	if h.presence != nil {
		if err := h.presence.Join(h.ctx, c.roomID, c.name); err != nil {
			h.logger.Warn("presence join failed", "room_id", c.roomID, "error", err)
		}
	}
	h.logger.Info("client connected", "room_id", c.roomID, "conn_id", c.id, "user_id", c.userID, "name", c.name)
	return true
}

func (h *Hub) closed() bool {
	return h.ctx.Err() != nil
}

// disconnect is where both a peer close and a failed read end up.
func (h *Hub) disconnect(c *Client) {
	c.close()
	h.registry.Unregister(c, c.roomID)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	// the hub context may already be cancelled during shutdown
	ctx := context.WithoutCancel(h.ctx)
	if h.presence != nil {
		if err := h.presence.Leave(ctx, c.roomID, c.name); err != nil {
			h.logger.Warn("presence leave failed", "room_id", c.roomID, "error", err)
		}
	}
	h.service.Leave(ctx, c.roomID, c.email, c.name)
	h.logger.Info("client disconnected", "room_id", c.roomID, "conn_id", c.id)
}

// Members lists who is connected to roomID, cluster-wide when presence is
// configured and on this instance otherwise.
func (h *Hub) Members(ctx context.Context, roomID string) ([]string, error) {
	if h.presence != nil {
		return h.presence.Members(ctx, roomID)
	}
	return h.registry.Members(roomID), nil
}

func (h *Hub) newLimiter() *rate.Limiter {
	if h.opts.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.opts.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.opts.MessagesPerSecond), burst)
}

func (h *Hub) maxFrameBytes() int64 {
	n := h.opts.MaxContentLength
	if n <= 0 {
		n = models.DefaultMaxContentLength
	}
	return int64(n)*4 + 512
}

func (h *Hub) Shutdown() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
	}
}
