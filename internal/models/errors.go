package models

import (
	"fmt"
	"unicode/utf8"
)

const DefaultMaxContentLength = 1024

// ValidationError reports input rejected before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateNewMessage checks a message about to be appended. maxLen counts
// runes; a non-positive maxLen falls back to DefaultMaxContentLength.
func ValidateNewMessage(roomID, content string, maxLen int) error {
	if _, err := ParseRoomID(roomID); err != nil {
		return &ValidationError{Field: "room_id", Reason: err.Error()}
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLength
	}
	if n := utf8.RuneCountInString(content); n > maxLen {
		return &ValidationError{
			Field:  "content",
			Reason: fmt.Sprintf("%d characters exceeds limit of %d", n, maxLen),
		}
	}
	return nil
}
