package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records published events for test assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		logger: logger,
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event Event) error {
	event = fillEnvelope(event)

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.logger.Debug("Mock publish", "event_type", event.Type)

	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of everything published so far
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents resets the recorded events
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// NopEventPublisher discards events, used when no broker is configured
type NopEventPublisher struct{}

func NewNopEventPublisher() *NopEventPublisher {
	return &NopEventPublisher{}
}

func (NopEventPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NopEventPublisher) Close() error { return nil }
