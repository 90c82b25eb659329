package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewGate tests construction and limit validation
func TestNewGate(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Limit())
	assert.Equal(t, 0, g.InFlight())

	_, err = New(0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

// TestAcquireRelease tests permit accounting
func TestAcquireRelease(t *testing.T) {
	g, err := New(2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx))
	require.NoError(t, g.Acquire(ctx))
	assert.Equal(t, 2, g.InFlight())

	g.Release()
	assert.Equal(t, 1, g.InFlight())
	g.Release()
	assert.Equal(t, 0, g.InFlight())
}

// TestAcquireBlocksWhenFull tests that a full gate blocks until release or cancellation
func TestAcquireBlocksWhenFull(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, g.InFlight())

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, g.Acquire(context.Background()))
	}()

	g.Release()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
	g.Release()
}

// TestBoundIndependentOfWorkers tests that concurrency never exceeds the gate limit
func TestBoundIndependentOfWorkers(t *testing.T) {
	const limit = 3
	const workers = 10

	g, err := New(limit)
	require.NoError(t, err)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if !assert.NoError(t, g.Acquire(context.Background())) {
					return
				}
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				current.Add(-1)
				g.Release()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Equal(t, 0, g.InFlight())
}
