package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MarkRead upserts the (room, user) marker; a later call overwrites it.
func (s *Store) MarkRead(ctx context.Context, roomID string, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_participants (room_id, user_id, last_read_at) VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO UPDATE SET last_read_at = excluded.last_read_at
	`, roomID, userID, toMicros(at))
	if err != nil {
		return fmt.Errorf("failed to update last read: %w", err)
	}
	return nil
}

func (s *Store) LastRead(ctx context.Context, roomID string, userID int64) (time.Time, bool, error) {
	var at int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_read_at FROM chat_participants WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	).Scan(&at)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get last read: %w", err)
	}
	return fromMicros(at), true, nil
}

func (s *Store) LastReadByRoom(ctx context.Context, userID int64) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, last_read_at FROM chat_participants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get read markers: %w", err)
	}
	defer rows.Close()

	markers := make(map[string]time.Time)
	for rows.Next() {
		var roomID string
		var at int64
		if err := rows.Scan(&roomID, &at); err != nil {
			return nil, err
		}
		markers[roomID] = fromMicros(at)
	}
	return markers, rows.Err()
}
