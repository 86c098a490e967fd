package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/umar/campus-chat/internal/models"
)

type markerKey struct {
	roomID string
	userID int64
}

// MemoryStore is a process-local message, read-marker and room store. Room
// discovery scans every room instead of using an index.
type MemoryStore struct {
	mu         sync.RWMutex
	maxContent int
	nextID     int64
	rooms      map[string][]models.Message
	markers    map[markerKey]time.Time
}

func NewMemoryStore(maxContent int) *MemoryStore {
	return &MemoryStore{
		maxContent: maxContent,
		rooms:      make(map[string][]models.Message),
		markers:    make(map[markerKey]time.Time),
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) AppendMessage(_ context.Context, roomID, sender, content string, now time.Time) (*models.Message, error) {
	if err := models.ValidateNewMessage(roomID, content, s.maxContent); err != nil {
		return nil, err
	}
	at := now.UTC().Truncate(time.Microsecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.rooms[roomID]
	if n := len(history); n > 0 && at.Before(history[n-1].Timestamp) {
		at = history[n-1].Timestamp
	}
	s.nextID++
	m := models.Message{
		ID:        s.nextID,
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
	s.rooms[roomID] = append(history, m)
	return &m, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.rooms[roomID]))
	copy(out, s.rooms[roomID])
	return out, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, roomID string, after *time.Time, excludeSender string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, m := range s.rooms[roomID] {
		if after != nil && !m.Timestamp.After(*after) {
			continue
		}
		if m.Sender == excludeSender {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) LatestMessage(_ context.Context, roomID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.rooms[roomID]
	if len(history) == 0 {
		return nil, nil
	}
	m := history[len(history)-1]
	return &m, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, roomID string, userID int64, at time.Time) error {
	s.mu.Lock()
	s.markers[markerKey{roomID, userID}] = at.UTC().Truncate(time.Microsecond)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LastRead(_ context.Context, roomID string, userID int64) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.markers[markerKey{roomID, userID}]
	return at, ok, nil
}

func (s *MemoryStore) LastReadByRoom(_ context.Context, userID int64) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time)
	for k, at := range s.markers {
		if k.userID == userID {
			out[k.roomID] = at
		}
	}
	return out, nil
}

// RoomsForBuyer matches the "-<buyerID>" suffix of every room with messages.
func (s *MemoryStore) RoomsForBuyer(_ context.Context, buyerID int64) ([]string, error) {
	suffix := "-" + strconv.FormatInt(buyerID, 10)
	return s.filterRooms(func(id string) bool {
		return strings.HasSuffix(id, suffix)
	}), nil
}

// RoomsForItems keeps rooms whose text before the first '-' names one of
// itemIDs.
func (s *MemoryStore) RoomsForItems(_ context.Context, itemIDs []int64) ([]string, error) {
	if len(itemIDs) == 0 {
		return []string{}, nil
	}
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[strconv.FormatInt(id, 10)] = true
	}
	return s.filterRooms(func(id string) bool {
		itemPart, _, ok := strings.Cut(id, "-")
		return ok && wanted[itemPart]
	}), nil
}

func (s *MemoryStore) filterRooms(keep func(string) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for id, history := range s.rooms {
		if len(history) > 0 && keep(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// MemoryDirectory serves item and user lookups from maps; it stands in for
// the marketplace CRUD tables in tests and in DB_DRIVER=memory mode.
type MemoryDirectory struct {
	mu    sync.RWMutex
	items map[int64]models.Item
	users map[int64]models.User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		items: make(map[int64]models.Item),
		users: make(map[int64]models.User),
	}
}

func (d *MemoryDirectory) PutItem(item models.Item) {
	d.mu.Lock()
	d.items[item.ID] = item
	d.mu.Unlock()
}

func (d *MemoryDirectory) DeleteItem(id int64) {
	d.mu.Lock()
	delete(d.items, id)
	d.mu.Unlock()
}

func (d *MemoryDirectory) PutUser(u models.User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

func (d *MemoryDirectory) GetItem(_ context.Context, id int64) (*models.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	item, ok := d.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (d *MemoryDirectory) ItemsOwnedBy(_ context.Context, ownerID int64) ([]models.Item, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	items := []models.Item{}
	for _, item := range d.items {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (d *MemoryDirectory) GetUser(_ context.Context, id int64) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// DirectorySeed is the JSON shape accepted by MemoryDirectory.Seed.
type DirectorySeed struct {
	Users []models.User `json:"users"`
	Items []models.Item `json:"items"`
}

// Seed loads users and items from JSON so a memory-backed server can answer
// conversation lists. Items with an unknown status are rejected.
func (d *MemoryDirectory) Seed(r io.Reader) error {
	var seed DirectorySeed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("failed to decode directory seed: %w", err)
	}
	for _, item := range seed.Items {
		if item.Status == "" {
			continue
		}
		if _, err := models.ParseItemStatus(string(item.Status)); err != nil {
			return fmt.Errorf("item %d: %w", item.ID, err)
		}
	}
	for _, u := range seed.Users {
		d.PutUser(u)
	}
	for _, item := range seed.Items {
		d.PutItem(item)
	}
	return nil
}
