package store

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/ChuLiYu/branch-inventory/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Basic Functionality Tests
// ============================================================================

// TestNewStore tests allocation
func TestNewStore(t *testing.T) {
	s, err := New(6)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Cap())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Records())

	_, err = New(-1)
	assert.ErrorIs(t, err, ErrNegativeCapacity)
}

// TestZeroCapacity tests that an empty run refuses every reservation
func TestZeroCapacity(t *testing.T) {
	s, err := New(0)
	require.NoError(t, err)

	_, err = s.Reserve()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 0, s.Len())
}

// TestReserveSequential tests indices and the capacity bound
func TestReserveSequential(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)

	for want := 0; want < 3; want++ {
		idx, err := s.Reserve()
		require.NoError(t, err)
		assert.Equal(t, want, idx)
	}

	_, err = s.Reserve()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, s.Len(), "cursor must not move past capacity")
}

// TestPutRecords tests writing records into reserved slots
func TestPutRecords(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	for _, id := range []string{"A", "B"} {
		idx, err := s.Reserve()
		require.NoError(t, err)
		require.NoError(t, s.Put(idx, types.Record{OperationID: id}))
	}
	assert.Equal(t, []types.Record{{OperationID: "A"}, {OperationID: "B"}}, s.Records())

	_, err = s.Reserve()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

// TestPutUnreservedSlot tests that Put rejects slots nobody reserved
func TestPutUnreservedSlot(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Put(0, types.Record{}), ErrInvalidSlot)
	assert.ErrorIs(t, s.Put(-1, types.Record{}), ErrInvalidSlot)
}

// ============================================================================
// Concurrency Tests
// ============================================================================

// TestConcurrentReserveUnique tests that W workers reserving N slots get exactly [0, N)
func TestConcurrentReserveUnique(t *testing.T) {
	const workers = 16
	const perWorker = 500
	const total = workers * perWorker

	s, err := New(total)
	require.NoError(t, err)

	var mu sync.Mutex
	got := make([]int, 0, total)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			local := make([]int, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				idx, err := s.Reserve()
				if !assert.NoError(t, err) {
					return
				}
				local = append(local, idx)
			}
			mu.Lock()
			got = append(got, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, got, total)
	sort.Ints(got)
	for i, idx := range got {
		require.Equal(t, i, idx, "indices must cover [0, N) without gaps or repeats")
	}
	assert.Equal(t, total, s.Len())
}

// TestConcurrentOverflow tests that contention past capacity never yields a (K+1)-th slot
func TestConcurrentOverflow(t *testing.T) {
	const capacity = 100
	const workers = 8

	s, err := New(capacity)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted, refused := 0, 0

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < capacity; i++ {
				idx, err := s.Reserve()
				if err == nil {
					err = s.Put(idx, types.Record{OperationID: fmt.Sprintf("w%d", w)})
				}
				mu.Lock()
				if err != nil {
					refused++
				} else {
					granted++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, capacity, granted)
	assert.Equal(t, workers*capacity-capacity, refused)
	assert.Equal(t, capacity, s.Len())
}
