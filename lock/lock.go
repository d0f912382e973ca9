// Package lock provides the advisory locks that serialise provisioning
// workflows touching the same servers or exclusive apps.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/xraph/pandda/id"
)

// ErrTimeout is returned when the locks could not be taken in time.
var ErrTimeout = errors.New("pandda: lock acquisition timed out")

// ServerKey is the lock key guarding a server's capacity.
func ServerKey(srv id.ServerID) string { return "server:" + srv.String() }

// AppKey is the lock key guarding the usernames of an exclusive app.
func AppKey(a id.AppID) string { return "app:" + a.String() }

// Manager hands out one binary semaphore per key. The zero value is not
// usable; call NewManager.
type Manager struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sems: make(map[string]*semaphore.Weighted)}
}

func (m *Manager) sem(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		m.sems[key] = s
	}
	return s
}

// Acquire takes every key, in sorted order with duplicates removed, and
// returns a function releasing them all. If the keys are not all held
// within timeout, any taken so far are released and ErrTimeout is
// returned. A cancelled ctx returns ctx.Err().
func (m *Manager) Acquire(ctx context.Context, timeout time.Duration, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	held := make([]*semaphore.Weighted, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, key := range sorted {
		s := m.sem(key)
		if err := s.Acquire(waitCtx, 1); err != nil {
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, ErrTimeout
		}
		held = append(held, s)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
