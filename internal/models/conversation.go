package models

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Conversation is the per-user view of a room. It is derived on every
// request and never stored.
type Conversation struct {
	RoomID              string     `json:"room_id"`
	ItemID              int64      `json:"item_id"`
	ItemTitle           string     `json:"item_title"`
	ItemImageURL        string     `json:"item_image_url"`
	CounterpartNickname string     `json:"counterpart_nickname"`
	Role                Role       `json:"role"`
	UnreadCount         int        `json:"unread_count"`
	LastMessage         string     `json:"last_message"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
}
