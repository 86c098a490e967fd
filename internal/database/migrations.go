package database

import (
	"database/sql"
	"fmt"
)

// Timestamps are stored as unix microseconds so both drivers compare and
// order them identically.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id       BIGSERIAL PRIMARY KEY,
    email    VARCHAR(100) UNIQUE NOT NULL,
    nickname VARCHAR(50)
);

CREATE TABLE IF NOT EXISTS items (
    id        BIGSERIAL PRIMARY KEY,
    owner_id  BIGINT NOT NULL,
    title     VARCHAR(100) NOT NULL,
    image_url VARCHAR(500),
    status    VARCHAR(16) NOT NULL DEFAULT 'on_sale'
);
CREATE INDEX IF NOT EXISTS idx_items_owner ON items (owner_id);

CREATE TABLE IF NOT EXISTS messages (
    id         BIGSERIAL PRIMARY KEY,
    room_id    VARCHAR(255) NOT NULL,
    sender     VARCHAR(255) NOT NULL,
    content    TEXT NOT NULL,
    created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at, id);

CREATE TABLE IF NOT EXISTS chat_rooms (
    room_id         VARCHAR(255) PRIMARY KEY,
    item_id         BIGINT NOT NULL,
    buyer_id        BIGINT NOT NULL,
    last_message_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_item ON chat_rooms (item_id);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_buyer ON chat_rooms (buyer_id);

CREATE TABLE IF NOT EXISTS chat_participants (
    room_id      VARCHAR(255) NOT NULL,
    user_id      BIGINT NOT NULL,
    last_read_at BIGINT NOT NULL,
    PRIMARY KEY (room_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants (user_id);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    email    VARCHAR(100) UNIQUE NOT NULL,
    nickname VARCHAR(50)
);

CREATE TABLE IF NOT EXISTS items (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id  INTEGER NOT NULL,
    title     VARCHAR(100) NOT NULL,
    image_url VARCHAR(500),
    status    VARCHAR(16) NOT NULL DEFAULT 'on_sale'
);
CREATE INDEX IF NOT EXISTS idx_items_owner ON items (owner_id);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id    VARCHAR(255) NOT NULL,
    sender     VARCHAR(255) NOT NULL,
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at, id);

CREATE TABLE IF NOT EXISTS chat_rooms (
    room_id         VARCHAR(255) PRIMARY KEY,
    item_id         INTEGER NOT NULL,
    buyer_id        INTEGER NOT NULL,
    last_message_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_item ON chat_rooms (item_id);
CREATE INDEX IF NOT EXISTS idx_chat_rooms_buyer ON chat_rooms (buyer_id);

CREATE TABLE IF NOT EXISTS chat_participants (
    room_id      VARCHAR(255) NOT NULL,
    user_id      INTEGER NOT NULL,
    last_read_at INTEGER NOT NULL,
    PRIMARY KEY (room_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_participants_user ON chat_participants (user_id);
`

func RunMigrations(db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", driver)
	}
	_, err := db.Exec(schema)
	return err
}
