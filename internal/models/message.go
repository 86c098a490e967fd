package models

import "time"

type Message struct {
	ID        int64     `json:"id"`
	RoomID    string    `json:"room_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadMarker struct {
	RoomID     string    `json:"room_id"`
	UserID     int64     `json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
}
