package chat

import (
	"encoding/json"
	"time"
)

const (
	TypeMessageNew = "message.new"
	TypeMemberLeft = "member.left"
	TypeError      = "error"
)

const leftRoomText = "left the chat room"

// Notification is the frame fanned out to a room. Clients only need sender
// and message; the rest is metadata. Sender is the authenticated identity,
// SenderName the display name the connection joined with.
type Notification struct {
	Type       string     `json:"type"`
	RoomID     string     `json:"room_id"`
	Sender     string     `json:"sender"`
	SenderName string     `json:"sender_name,omitempty"`
	Message    string     `json:"message"`
	MessageID  int64      `json:"message_id,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func encodeNotification(n Notification) ([]byte, error) {
	return json.Marshal(n)
}

func encodeError(message, code string) []byte {
	data, _ := json.Marshal(ErrorFrame{Type: TypeError, Message: message, Code: code})
	return data
}
