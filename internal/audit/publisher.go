package audit

import (
	"context"
	"sync"
)

// Publisher delivers committed custody events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop discards events. Used when no stream is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// Memory records events in order; tests read them back.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, events ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
