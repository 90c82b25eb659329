package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClaimInOrder tests single-consumer draining
func TestClaimInOrder(t *testing.T) {
	q := New([]string{"a", "b", "c"})
	assert.Equal(t, 3, q.Size())
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Claim()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Claim()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 3, q.Size())
}

// TestEmptyQueue tests that an empty listing is immediately exhausted
func TestEmptyQueue(t *testing.T) {
	q := New(nil)
	_, ok := q.Claim()
	assert.False(t, ok)
}

// TestConcurrentClaimExactlyOnce tests that concurrent workers never share a path
func TestConcurrentClaimExactlyOnce(t *testing.T) {
	const files = 1000
	const workers = 12

	paths := make([]string, files)
	for i := range paths {
		paths[i] = fmt.Sprintf("sucursal_%04d.csv", i)
	}
	q := New(paths)

	var mu sync.Mutex
	seen := make(map[string]int, files)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				p, ok := q.Claim()
				if !ok {
					return
				}
				mu.Lock()
				seen[p]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, files)
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s claimed %d times", p, n)
	}
}
