package models

import (
	"time"
)

// Message is a chat-visible record. System messages are produced by the outbox
// dispatcher when a job changes state.
type Message struct {
	ID         int       `json:"id"`
	JobID      int       `json:"job_id"`
	SenderID   int       `json:"sender_id"`
	ReceiverID int       `json:"receiver_id"`
	Text       string    `json:"text"`
	System     bool      `json:"system"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is a user-facing alert row, also pushed over FCM when a device
// token is known.
type Notification struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
