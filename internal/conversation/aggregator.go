package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/umar/campus-chat/internal/metrics"
	"github.com/umar/campus-chat/internal/models"
)

// UnknownUser stands in for a counterpart whose user record is gone.
const UnknownUser = "unknown user"

type RoomIndex interface {
	RoomsForBuyer(ctx context.Context, buyerID int64) ([]string, error)
	RoomsForItems(ctx context.Context, itemIDs []int64) ([]string, error)
}

type ItemDirectory interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ItemsOwnedBy(ctx context.Context, ownerID int64) ([]models.Item, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type ReadMarkers interface {
	LastReadByRoom(ctx context.Context, userID int64) (map[string]time.Time, error)
}

type MessageReader interface {
	CountUnread(ctx context.Context, roomID string, after *time.Time, excludeSender string) (int, error)
	LatestMessage(ctx context.Context, roomID string) (*models.Message, error)
}

// Aggregator builds a user's conversation list from the rooms they buy in
// and the rooms opened on items they sell.
type Aggregator struct {
	rooms    RoomIndex
	items    ItemDirectory
	users    UserDirectory
	reads    ReadMarkers
	messages MessageReader
	logger   *slog.Logger
}

func NewAggregator(rooms RoomIndex, items ItemDirectory, users UserDirectory, reads ReadMarkers, messages MessageReader, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		rooms:    rooms,
		items:    items,
		users:    users,
		reads:    reads,
		messages: messages,
		logger:   logger.With("component", "conversations"),
	}
}

// List returns one conversation per room the caller takes part in, newest
// activity first. Rooms with a malformed id or a deleted item are left out;
// only store failures are returned as errors.
func (a *Aggregator) List(ctx context.Context, caller models.Caller) ([]models.Conversation, error) {
	roomIDs, err := a.candidateRooms(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	markers, err := a.reads.LastReadByRoom(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load read markers: %w", err)
	}

	convs := make([]models.Conversation, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		conv, ok, err := a.summarize(ctx, caller, roomID, markers)
		if err != nil {
			return nil, err
		}
		if ok {
			convs = append(convs, conv)
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		ti, tj := convs[i].LastMessageAt, convs[j].LastMessageAt
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.After(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return convs[i].RoomID < convs[j].RoomID
	})
	return convs, nil
}

func (a *Aggregator) candidateRooms(ctx context.Context, userID int64) ([]string, error) {
	asBuyer, err := a.rooms.RoomsForBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyer rooms: %w", err)
	}

	owned, err := a.items.ItemsOwnedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned items: %w", err)
	}
	var asSeller []string
	if len(owned) > 0 {
		ids := make([]int64, len(owned))
		for i, it := range owned {
			ids[i] = it.ID
		}
		asSeller, err = a.rooms.RoomsForItems(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to list seller rooms: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(asBuyer)+len(asSeller))
	var out []string
	for _, list := range [][]string{asBuyer, asSeller} {
		for _, id := range list {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

func (a *Aggregator) summarize(ctx context.Context, caller models.Caller, roomID string, markers map[string]time.Time) (models.Conversation, bool, error) {
	key, err := models.ParseRoomID(roomID)
	if err != nil {
		a.logger.Debug("skipping room", "room_id", roomID, "reason", "malformed")
		metrics.ConversationsSkipped.WithLabelValues("malformed").Inc()
		return models.Conversation{}, false, nil
	}

	item, err := a.items.GetItem(ctx, key.ItemID)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("failed to get item %d: %w", key.ItemID, err)
	}
	if item == nil {
		a.logger.Debug("skipping room", "room_id", roomID, "reason", "missing_item")
		metrics.ConversationsSkipped.WithLabelValues("missing_item").Inc()
		return models.Conversation{}, false, nil
	}

	role, counterpartID := models.RoleSeller, key.BuyerID
	if key.BuyerID == caller.ID {
		role, counterpartID = models.RoleBuyer, item.OwnerID
	}
	nickname, err := a.nickname(ctx, counterpartID)
	if err != nil {
		return models.Conversation{}, false, err
	}

	var after *time.Time
	if t, ok := markers[roomID]; ok {
		after = &t
	}
	unread, err := a.messages.CountUnread(ctx, roomID, after, caller.Email)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("failed to count unread: %w", err)
	}

	conv := models.Conversation{
		RoomID:              roomID,
		ItemID:              item.ID,
		ItemTitle:           item.Title,
		ItemImageURL:        item.ImageURL,
		CounterpartNickname: nickname,
		Role:                role,
		UnreadCount:         unread,
	}

	last, err := a.messages.LatestMessage(ctx, roomID)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("failed to get latest message: %w", err)
	}
	if last != nil {
		ts := last.Timestamp
		conv.LastMessage = last.Content
		conv.LastMessageAt = &ts
	}
	return conv, true, nil
}

func (a *Aggregator) nickname(ctx context.Context, userID int64) (string, error) {
	u, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if u == nil || u.Nickname == "" {
		return UnknownUser, nil
	}
	return u.Nickname, nil
}
