package keylock

import (
	"context"
	"errors"
	"sync"
)

var ErrNotHeld = errors.New("lock is not held")

// Locker is a keyed, non-blocking mutual exclusion primitive.
// TryLock never waits: it returns false when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Memory is a process-local Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

func (m *Memory) TryLock(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return false, nil
	}
	m.held[key] = struct{}{}
	return true, nil
}

func (m *Memory) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; !ok {
		return ErrNotHeld
	}
	delete(m.held, key)
	return nil
}
