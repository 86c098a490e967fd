package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/umar/campus-chat/internal/models"
)

// --- Items and users (read-only; owned by the marketplace CRUD layer) ---

func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, COALESCE(image_url, ''), status FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (s *Store) ItemsOwnedBy(ctx context.Context, ownerID int64) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, COALESCE(image_url, ''), status FROM items WHERE owner_id = $1 ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, COALESCE(nickname, '') FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Nickname)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func scanItem(sc scanner) (models.Item, error) {
	var item models.Item
	var status string
	if err := sc.Scan(&item.ID, &item.OwnerID, &item.Title, &item.ImageURL, &status); err != nil {
		return item, err
	}
	// unknown statuses are left empty rather than failing the lookup
	if st, err := models.ParseItemStatus(status); err == nil {
		item.Status = st
	}
	return item, nil
}
