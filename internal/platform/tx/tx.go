package tx

import (
	"context"
	"sync"
)

// Manager wraps a unit of work that must not interleave with another unit
// guarded by the same manager.
type Manager interface {
	Within(ctx context.Context, fn func(context.Context) error) error
}

type NoopManager struct{}

func (NoopManager) Within(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// LockManager serializes every unit of work behind one mutex.
type LockManager struct {
	mu sync.Mutex
}

func (m *LockManager) Within(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
