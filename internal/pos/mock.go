package pos

import (
	"context"
	"sync"
)

// MockAdapter returns whatever snapshot it was last given. It backs the
// demo mode and the tests.
type MockAdapter struct {
	mu    sync.Mutex
	snap  Snapshot
	err   error
	calls int
}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (m *MockAdapter) Name() string { return "mock" }

// Set replaces the snapshot and clears any injected failure.
func (m *MockAdapter) Set(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
	m.err = nil
}

// Fail makes every following Sync return err until Set is called.
func (m *MockAdapter) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Sync ran.
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockAdapter) Sync(ctx context.Context, _ Credentials) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if m.err != nil {
		return Snapshot{}, m.err
	}
	out := Snapshot{
		Open:   append([]Check(nil), m.snap.Open...),
		Closed: append([]Check(nil), m.snap.Closed...),
	}
	return out, nil
}
