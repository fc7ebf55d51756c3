// Package memory provides conversation memory for multi-turn question
// answering.
//
// Drivers persist role-tagged messages per session and return them on demand
// so that follow-up questions can carry conversational context into
// retrieval. Sessions are bounded: drivers cap both the number of sessions
// and the messages per session, pruning oldest first.
//
// Drivers are pluggable via configuration:
//
//	[memory]
//	enabled = true
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of a conversation session.
type Message struct {
	// Role is the speaker: user or assistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp records when the message was appended.
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo summarizes one stored session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// Driver handles storage and recall of conversation sessions.
type Driver interface {
	// Append adds a message to a session, creating the session on first use.
	Append(ctx context.Context, sessionID string, msg Message) error

	// History returns a session's messages in append order. Unknown
	// sessions return an empty history.
	History(ctx context.Context, sessionID string) ([]Message, error)

	// Sessions lists stored sessions, most recently updated first.
	Sessions(ctx context.Context) ([]SessionInfo, error)

	// Clear removes one session, or every session when sessionID is empty.
	Clear(ctx context.Context, sessionID string) error

	// Close releases driver resources.
	Close() error
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
