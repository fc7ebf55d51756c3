package testutils

import (
	"context"
	"sync"

	"github.com/foliodocs/folio/pkg/eventstream"
)

// MockPublisher is an eventstream.Publisher that records published events.
type MockPublisher struct {
	// PublishErr causes every publish call to fail.
	PublishErr error

	mu        sync.Mutex
	documents []*eventstream.DocumentIndexedEvent
	completed []*eventstream.IngestionCompletedEvent
	closed    bool
}

// NewMockPublisher creates a new recording publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishDocumentIndexed(_ context.Context, event *eventstream.DocumentIndexedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, event)
	return nil
}

func (m *MockPublisher) PublishIngestionCompleted(_ context.Context, event *eventstream.IngestionCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// DocumentEvents returns recorded document events in publish order.
func (m *MockPublisher) DocumentEvents() []*eventstream.DocumentIndexedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.DocumentIndexedEvent, len(m.documents))
	copy(out, m.documents)
	return out
}

// CompletedEvents returns recorded batch completion events in publish order.
func (m *MockPublisher) CompletedEvents() []*eventstream.IngestionCompletedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.IngestionCompletedEvent, len(m.completed))
	copy(out, m.completed)
	return out
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
