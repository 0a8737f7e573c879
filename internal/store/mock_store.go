// ABOUTME: Mock Ledger implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/cookie-jar/internal/dispatch"
)

// MockStore is an in-memory Ledger implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	events []Event // oldest first
	closed bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Append stores a copy of the event.
func (m *MockStore) Append(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.events = append(m.events, *e)
	return nil
}

// List returns matching events, newest first.
func (m *MockStore) List(_ context.Context, f Filter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	limit := normalizeLimit(f.Limit)
	result := []Event{}
	for i := len(m.events) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.events[i]
		if f.Operation != "" && e.Operation != f.Operation {
			continue
		}
		if f.Since != nil && e.Timestamp.Before(f.Since.Truncate(time.Second)) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// Stats summarizes the stored events.
func (m *MockStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Stats{}, ErrClosed
	}

	st := Stats{Events: len(m.events)}
	for _, e := range m.events {
		if e.Accepted && isAward(e.Operation) {
			st.Awarded++
		}
		if e.ErrorKind != "" {
			st.Denied++
		}
	}
	return st, nil
}

// Observe records a dispatcher outcome.
func (m *MockStore) Observe(ctx context.Context, o *dispatch.Outcome) error {
	return m.Append(ctx, EventFromOutcome(o))
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
