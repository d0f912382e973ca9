package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda/id"
)

func TestAcquireRelease(t *testing.T) {
	m := NewManager()
	key := ServerKey(id.NewServerID())

	release, err := m.Acquire(context.Background(), time.Second, key)
	require.NoError(t, err)
	release()
	release() // second call is a no-op

	release, err = m.Acquire(context.Background(), time.Second, key)
	require.NoError(t, err)
	release()
}

func TestAcquireTimeout(t *testing.T) {
	m := NewManager()
	key := AppKey(id.NewAppID())

	release, err := m.Acquire(context.Background(), time.Second, key)
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire(context.Background(), 20*time.Millisecond, key)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAcquireReleasesPartialOnTimeout(t *testing.T) {
	m := NewManager()
	a, b := "a", "b"

	holdB, err := m.Acquire(context.Background(), time.Second, b)
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), 20*time.Millisecond, a, b)
	require.ErrorIs(t, err, ErrTimeout)
	holdB()

	// "a" must have been released by the failed call.
	release, err := m.Acquire(context.Background(), 20*time.Millisecond, a)
	require.NoError(t, err)
	release()
}

func TestAcquireCancelled(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Acquire(ctx, time.Second, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireDuplicateKeys(t *testing.T) {
	m := NewManager()

	release, err := m.Acquire(context.Background(), 50*time.Millisecond, "x", "x", "y")
	require.NoError(t, err)
	release()
}

func TestAcquireOppositeOrderNoDeadlock(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	var ok atomic.Int32

	for i := range 20 {
		keys := []string{"s1", "s2"}
		if i%2 == 1 {
			keys = []string{"s2", "s1"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(context.Background(), 5*time.Second, keys...)
			if err != nil {
				return
			}
			ok.Add(1)
			time.Sleep(time.Millisecond)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(20), ok.Load())
}

func TestKeys(t *testing.T) {
	srv := id.NewServerID()
	assert.Equal(t, "server:"+srv.String(), ServerKey(srv))
}
