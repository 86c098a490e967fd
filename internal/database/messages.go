package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/umar/campus-chat/internal/models"
)

// AppendMessage persists a message and bumps the room's index row in one
// transaction. The upsert on chat_rooms locks the room row, so concurrent
// appends to the same room get non-decreasing timestamps in id order.
func (s *Store) AppendMessage(ctx context.Context, roomID, sender, content string, now time.Time) (*models.Message, error) {
	if err := models.ValidateNewMessage(roomID, content, s.maxContent); err != nil {
		return nil, err
	}
	key, _ := models.ParseRoomID(roomID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	var at int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chat_rooms (room_id, item_id, buyer_id, last_message_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id) DO UPDATE SET last_message_at =
		    CASE WHEN excluded.last_message_at > chat_rooms.last_message_at
		         THEN excluded.last_message_at
		         ELSE chat_rooms.last_message_at END
		RETURNING last_message_at
	`, roomID, key.ItemID, key.BuyerID, toMicros(now)).Scan(&at)
	if err != nil {
		return nil, fmt.Errorf("failed to index room: %w", err)
	}

	m := models.Message{
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Timestamp: fromMicros(at),
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (room_id, sender, content, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		roomID, sender, content, at,
	).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, sender, content, created_at
		FROM messages WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountUnread counts messages newer than after that were not sent by
// excludeSender. A nil after counts the whole room.
func (s *Store) CountUnread(ctx context.Context, roomID string, after *time.Time, excludeSender string) (int, error) {
	since := int64(-1)
	if after != nil {
		since = toMicros(*after)
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE room_id = $1 AND created_at > $2 AND sender <> $3
	`, roomID, since, excludeSender).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return count, nil
}

func (s *Store) LatestMessage(ctx context.Context, roomID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, sender, content, created_at
		FROM messages WHERE room_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, roomID)
	m, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (models.Message, error) {
	var m models.Message
	var at int64
	if err := sc.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Content, &at); err != nil {
		return m, err
	}
	m.Timestamp = fromMicros(at)
	return m, nil
}
