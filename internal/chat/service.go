package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/umar/campus-chat/internal/metrics"
	"github.com/umar/campus-chat/internal/models"
)

type MessageStore interface {
	AppendMessage(ctx context.Context, roomID, sender, content string, now time.Time) (*models.Message, error)
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	LatestMessage(ctx context.Context, roomID string) (*models.Message, error)
}

type ReadMarkerStore interface {
	MarkRead(ctx context.Context, roomID string, userID int64, at time.Time) error
}

// Service ties persistence to live fan-out. A message is always stored
// before it is published, so history can recover anything a broadcast lost.
type Service struct {
	messages  MessageStore
	reads     ReadMarkerStore
	publisher Publisher
	registry  *Registry
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(messages MessageStore, reads ReadMarkerStore, publisher Publisher, registry *Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = LocalPublisher{Registry: registry}
	}
	return &Service{
		messages:  messages,
		reads:     reads,
		publisher: publisher,
		registry:  registry,
		logger:    logger.With("component", "chat"),
		now:       time.Now,
	}
}

// Post appends content to the room and then fans it out. sender is the
// authenticated identity the message is stored under. Errors come only from
// validation or persistence; fan-out problems are logged.
func (s *Service) Post(ctx context.Context, roomID, sender, content string) (*models.Message, error) {
	return s.PostAs(ctx, roomID, sender, "", content)
}

// PostAs is Post with a display name carried on the notification.
func (s *Service) PostAs(ctx context.Context, roomID, sender, name, content string) (*models.Message, error) {
	msg, err := s.messages.AppendMessage(ctx, roomID, sender, content, s.now())
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	ts := msg.Timestamp
	s.publish(ctx, roomID, Notification{
		Type:       TypeMessageNew,
		RoomID:     roomID,
		Sender:     msg.Sender,
		SenderName: name,
		Message:    msg.Content,
		MessageID:  msg.ID,
		Timestamp:  &ts,
	})
	return msg, nil
}

// Leave tells the room that sender's connection is gone. Nothing is stored.
func (s *Service) Leave(ctx context.Context, roomID, sender, name string) {
	s.publish(ctx, roomID, Notification{
		Type:       TypeMemberLeft,
		RoomID:     roomID,
		Sender:     sender,
		SenderName: name,
		Message:    leftRoomText,
	})
}

// History has two effects: it returns the full ordered history and moves
// userID's read marker past the newest message in it. The marker is never
// earlier than now.
func (s *Service) History(ctx context.Context, roomID string, userID int64) ([]models.Message, error) {
	msgs, err := s.messages.ListMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	var newest *time.Time
	if n := len(msgs); n > 0 {
		newest = &msgs[n-1].Timestamp
	}
	if err := s.markRead(ctx, roomID, userID, newest); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead moves userID's marker to now, or to the newest message if that
// is later.
func (s *Service) MarkRead(ctx context.Context, roomID string, userID int64) error {
	latest, err := s.messages.LatestMessage(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load latest message: %w", err)
	}
	var newest *time.Time
	if latest != nil {
		newest = &latest.Timestamp
	}
	return s.markRead(ctx, roomID, userID, newest)
}

// markRead covers message timestamps that run ahead of this clock, which the
// store allows because it never lets a room's timestamps go backwards.
func (s *Service) markRead(ctx context.Context, roomID string, userID int64, newest *time.Time) error {
	at := s.now()
	if newest != nil && newest.After(at) {
		at = *newest
	}
	if err := s.reads.MarkRead(ctx, roomID, userID, at); err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, roomID string, n Notification) {
	data, err := encodeNotification(n)
	if err != nil {
		s.logger.Error("failed to encode notification", "room_id", roomID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, roomID, data); err != nil {
		s.logger.Warn("publish failed, delivering locally", "room_id", roomID, "error", err)
		if s.registry != nil {
			s.registry.Broadcast(roomID, data)
		}
	}
}
