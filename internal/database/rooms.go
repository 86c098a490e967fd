package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func (s *Store) RoomsForBuyer(ctx context.Context, buyerID int64) ([]string, error) {
	return s.queryRoomIDs(ctx, `SELECT room_id FROM chat_rooms WHERE buyer_id = $1`, buyerID)
}

func (s *Store) RoomsForItems(ctx context.Context, itemIDs []int64) ([]string, error) {
	if len(itemIDs) == 0 {
		return []string{}, nil
	}
	placeholders := make([]string, len(itemIDs))
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := `SELECT room_id FROM chat_rooms WHERE item_id IN (` + strings.Join(placeholders, ", ") + `)`
	return s.queryRoomIDs(ctx, query, args...)
}

func (s *Store) queryRoomIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
