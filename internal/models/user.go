package models

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email,omitempty"`
	Nickname string `json:"nickname"`
}

// Caller is the authenticated user behind a request. Email is the identity
// string messages are attributed to when checking for self-sent messages.
type Caller struct {
	ID    int64
	Email string
}
