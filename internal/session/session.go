// Package session tracks short-lived conversation state per user:
// the message log for a consultation plus a small context map that
// carries findings between agent calls.
package session

import (
	"context"
	"time"
)

// Message is one conversation turn inside a session.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session is the mutable state of one user conversation.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	Messages     []Message         `json:"messages"`
	Context      map[string]string `json:"context"`
}

// Store manages session lifecycle. Reads refresh the last-accessed
// timestamp so active sessions outlive the TTL.
type Store interface {
	Create(ctx context.Context, userID string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, bool, error)
	AppendMessage(ctx context.Context, id string, msg Message) error
	SetContext(ctx context.Context, id, key, value string) error
	RecentMessages(ctx context.Context, id string, limit int) ([]Message, error)
}
