// Package local provides a JSON-file implementation of the memory.Driver
// interface.
//
// Sessions live in a single file, written back on every mutation. Caps keep
// the file small: oldest sessions and oldest messages are pruned first. This
// is a local-dev story for a single folio process; concurrent processes
// sharing one file will overwrite each other.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/foliodocs/folio/pkg/memory"
)

const (
	defaultMaxSessions = 100
	defaultMaxMessages = 50
)

// Config holds configuration for the local memory driver.
type Config struct {
	// Path is the JSON file sessions are persisted to.
	Path string

	// MaxSessions caps stored sessions (defaults to 100, oldest pruned).
	MaxSessions int

	// MaxMessages caps messages per session (defaults to 50, oldest pruned).
	MaxMessages int
}

type session struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []memory.Message `json:"messages"`
}

// Driver implements memory.Driver backed by a single JSON file.
type Driver struct {
	config Config

	mu       sync.Mutex
	sessions map[string]*session
}

// NewDriver creates a local memory driver, loading any existing sessions
// from the configured path.
func NewDriver(config Config) (*Driver, error) {
	if config.Path == "" {
		return nil, errors.New("sessions path is required")
	}

	if config.MaxSessions == 0 {
		config.MaxSessions = defaultMaxSessions
	}

	if config.MaxMessages == 0 {
		config.MaxMessages = defaultMaxMessages
	}

	d := &Driver{
		config:   config,
		sessions: make(map[string]*session),
	}

	if err := d.load(); err != nil {
		return nil, err
	}

	return d, nil
}

// Append adds a message to a session, creating the session on first use.
func (d *Driver) Append(_ context.Context, sessionID string, msg memory.Message) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	s, ok := d.sessions[sessionID]
	if !ok {
		s = &session{ID: sessionID, CreatedAt: now}
		d.sessions[sessionID] = s
	}

	s.Messages = append(s.Messages, msg)
	if len(s.Messages) > d.config.MaxMessages {
		s.Messages = s.Messages[len(s.Messages)-d.config.MaxMessages:]
	}
	s.UpdatedAt = now

	d.pruneSessions()

	return d.save()
}

// History returns a session's messages in append order.
func (d *Driver) History(_ context.Context, sessionID string) ([]memory.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	out := make([]memory.Message, len(s.Messages))
	copy(out, s.Messages)

	return out, nil
}

// Sessions lists stored sessions, most recently updated first.
func (d *Driver) Sessions(_ context.Context) ([]memory.SessionInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := make([]memory.SessionInfo, 0, len(d.sessions))
	for _, s := range d.sessions {
		infos = append(infos, memory.SessionInfo{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
			Messages:  len(s.Messages),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UpdatedAt.Equal(infos[j].UpdatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})

	return infos, nil
}

// Clear removes one session, or every session when sessionID is empty.
func (d *Driver) Clear(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sessionID == "" {
		d.sessions = make(map[string]*session)
	} else {
		delete(d.sessions, sessionID)
	}

	return d.save()
}

// Close is a no-op; state is persisted on every mutation.
func (d *Driver) Close() error {
	return nil
}

// pruneSessions drops the least recently updated sessions over the cap.
// Callers must hold d.mu.
func (d *Driver) pruneSessions() {
	if len(d.sessions) <= d.config.MaxSessions {
		return
	}

	all := make([]*session, 0, len(d.sessions))
	for _, s := range d.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.Before(all[j].UpdatedAt)
	})

	for _, s := range all[:len(all)-d.config.MaxSessions] {
		delete(d.sessions, s.ID)
	}
}

func (d *Driver) load() error {
	data, err := os.ReadFile(d.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading sessions file: %w", err)
	}

	if err := json.Unmarshal(data, &d.sessions); err != nil {
		return fmt.Errorf("parsing sessions file %s: %w", d.config.Path, err)
	}

	return nil
}

// save writes all sessions back to disk. Callers must hold d.mu.
func (d *Driver) save() error {
	data, err := json.MarshalIndent(d.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sessions: %w", err)
	}

	if err := os.WriteFile(d.config.Path, data, 0o600); err != nil {
		return fmt.Errorf("writing sessions file: %w", err)
	}

	return nil
}
