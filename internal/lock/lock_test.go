package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop-backend/internal/lock"
)

func TestLocalLockerExclusivePerKey(t *testing.T) {
	l := lock.NewLocalLocker()

	h, err := l.Acquire(context.Background(), "1@2025-03-01", time.Second)
	require.NoError(t, err)

	// Same key blocks until released.
	_, err = l.Acquire(context.Background(), "1@2025-03-01", 50*time.Millisecond)
	assert.ErrorIs(t, err, lock.ErrTimeout)

	// A different key is independent.
	other, err := l.Acquire(context.Background(), "2@2025-03-01", 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l.Release(context.Background(), other))

	require.NoError(t, l.Release(context.Background(), h))
	h, err = l.Acquire(context.Background(), "1@2025-03-01", 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l.Release(context.Background(), h))
}

func TestLocalLockerWaitsForHolder(t *testing.T) {
	l := lock.NewLocalLocker()

	h, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h2, err := l.Acquire(context.Background(), "k", time.Second)
		assert.NoError(t, err)
		assert.NoError(t, l.Release(context.Background(), h2))
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, l.Release(context.Background(), h))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestLocalLockerRespectsContext(t *testing.T) {
	l := lock.NewLocalLocker()
	h, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	defer l.Release(context.Background(), h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLockerManyWaiters(t *testing.T) {
	l := lock.NewLocalLocker()
	held := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := l.Acquire(context.Background(), "k", 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			held++
			assert.Equal(t, 1, held)
			held--
			mu.Unlock()
			assert.NoError(t, l.Release(context.Background(), h))
		}()
	}
	wg.Wait()
}
