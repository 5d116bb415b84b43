package audit

import (
	"context"
	"sync"
)

// maxMemoryActions bounds the in-memory history; older entries are
// discarded once the buffer is full.
const maxMemoryActions = 1000

// MemorySink is an in-memory Sink suitable for development, testing,
// or deployments that do not need a durable audit trail.
type MemorySink struct {
	mu      sync.RWMutex
	actions []Action
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends an action, evicting the oldest entry when full.
func (m *MemorySink) Record(ctx context.Context, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, action)
	if len(m.actions) > maxMemoryActions {
		m.actions = m.actions[len(m.actions)-maxMemoryActions:]
	}
	return nil
}

// Recent returns up to limit actions, newest first.
func (m *MemorySink) Recent(ctx context.Context, limit int) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.actions) {
		limit = len(m.actions)
	}
	out := make([]Action, 0, limit)
	for i := len(m.actions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.actions[i])
	}
	return out, nil
}

// Close is a no-op for the memory sink.
func (m *MemorySink) Close() error { return nil }
