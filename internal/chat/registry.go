package chat

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/umar/campus-chat/internal/metrics"
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrConnClosed    = errors.New("connection closed")
)

// Subscriber is one live connection that can receive room payloads.
type Subscriber interface {
	// ID identifies the connection; registering the same ID twice in a room
	// keeps a single delivery target.
	ID() string
	// Name is the display name the connection joined with.
	Name() string
	Deliver(payload []byte) error
}

type roomConns struct {
	mu    sync.RWMutex
	conns map[string]Subscriber
}

// Registry maps room ids to their live connections. Each room has its own
// lock; the registry lock only guards the room map itself.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*roomConns
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		rooms:  make(map[string]*roomConns),
		logger: logger.With("component", "registry"),
	}
}

func (r *Registry) Register(sub Subscriber, roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		room = &roomConns{conns: make(map[string]Subscriber)}
		r.rooms[roomID] = room
	}
	room.mu.Lock()
	_, existed := room.conns[sub.ID()]
	room.conns[sub.ID()] = sub
	room.mu.Unlock()
	r.mu.Unlock()

	if !existed {
		metrics.ActiveConnections.Inc()
	}
	r.logger.Debug("connection registered", "room_id", roomID, "conn_id", sub.ID())
}

func (r *Registry) Unregister(sub Subscriber, roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	room.mu.Lock()
	_, existed := room.conns[sub.ID()]
	delete(room.conns, sub.ID())
	empty := len(room.conns) == 0
	room.mu.Unlock()
	if empty {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()

	if existed {
		metrics.ActiveConnections.Dec()
		r.logger.Debug("connection unregistered", "room_id", roomID, "conn_id", sub.ID())
	}
}

// Broadcast delivers payload to every connection registered for roomID and
// returns how many accepted it. Delivery happens outside any lock; failures
// are logged and never stop delivery to the rest of the room.
func (r *Registry) Broadcast(roomID string, payload []byte) int {
	targets := r.snapshot(roomID)
	delivered := 0
	for _, sub := range targets {
		if err := sub.Deliver(payload); err != nil {
			metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
			r.logger.Warn("broadcast delivery failed",
				"room_id", roomID, "conn_id", sub.ID(), "error", err)
			continue
		}
		metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
		delivered++
	}
	return delivered
}

func (r *Registry) Count(roomID string) int {
	return len(r.snapshot(roomID))
}

// Members returns the sorted display names connected to roomID on this
// instance. A name connected twice appears once.
func (r *Registry) Members(roomID string) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, sub := range r.snapshot(roomID) {
		if !seen[sub.Name()] {
			seen[sub.Name()] = true
			names = append(names, sub.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) snapshot(roomID string) []Subscriber {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	room.mu.RLock()
	defer room.mu.RUnlock()
	out := make([]Subscriber, 0, len(room.conns))
	for _, sub := range room.conns {
		out = append(out, sub)
	}
	return out
}

func (r *Registry) roomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
