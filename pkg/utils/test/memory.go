package testutils

import (
	"context"
	"sync"

	"github.com/foliodocs/folio/pkg/memory"
)

// MockMemoryDriver is an in-memory memory.Driver for tests.
type MockMemoryDriver struct {
	// AppendErr causes Append to fail.
	AppendErr error

	// HistoryErr causes History to fail.
	HistoryErr error

	mu       sync.Mutex
	order    []string
	messages map[string][]memory.Message
}

// NewMockMemoryDriver creates a new mock memory driver.
func NewMockMemoryDriver() *MockMemoryDriver {
	return &MockMemoryDriver{
		messages: make(map[string][]memory.Message),
	}
}

func (m *MockMemoryDriver) Append(_ context.Context, sessionID string, msg memory.Message) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[sessionID]; !ok {
		m.order = append(m.order, sessionID)
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return nil
}

func (m *MockMemoryDriver) History(_ context.Context, sessionID string) ([]memory.Message, error) {
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[sessionID]
	out := make([]memory.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MockMemoryDriver) Sessions(_ context.Context) ([]memory.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]memory.SessionInfo, 0, len(m.messages))
	for _, id := range m.order {
		if msgs, ok := m.messages[id]; ok {
			infos = append(infos, memory.SessionInfo{ID: id, Messages: len(msgs)})
		}
	}
	return infos, nil
}

func (m *MockMemoryDriver) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID == "" {
		m.messages = make(map[string][]memory.Message)
		m.order = nil
		return nil
	}
	delete(m.messages, sessionID)
	return nil
}

func (m *MockMemoryDriver) Close() error {
	return nil
}
