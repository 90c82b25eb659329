// ============================================================================
// Branch Inventory - File Gate
// ============================================================================
//
// Package: internal/gate
// File: gate.go
// Purpose: Admission control on the number of files open at the same time
//
// The bound is configured on its own (MAX_OPEN_FILES) and is not tied to the
// worker count. With N workers and a gate of M < N, at most M files are in
// flight while the remaining workers block in Acquire.
//
// ============================================================================

package gate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrInvalidLimit is returned by New for a non-positive limit.
var ErrInvalidLimit = errors.New("gate: limit must be positive")

// Gate is a counting semaphore over in-flight files.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int
	inFlight atomic.Int64
}

// New creates a gate admitting at most limit holders.
func New(limit int) (*Gate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
	}, nil
}

// Acquire blocks until a permit is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inFlight.Add(1)
	return nil
}

// Release returns a permit taken by Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// InFlight returns the number of permits currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Limit returns the configured bound.
func (g *Gate) Limit() int {
	return g.limit
}
