// ============================================================================
// Branch Inventory - Record Store
// ============================================================================
//
// Package: internal/store
// File: store.go
// Purpose: Fixed-capacity slice of parsed records shared by every worker
//
// Slot reservation:
//   The store is allocated once, before any worker starts, with the exact
//   number of lines counted in the source directory. Workers never compute
//   an index themselves; they call Reserve, which advances a single atomic
//   cursor with compare-and-swap:
//
//     next ──CAS(n, n+1)──> n is owned by the caller
//
//   - two callers never get the same n
//   - the cursor never moves past Cap(); a reservation that would is refused
//     with ErrCapacityExceeded and leaves the cursor untouched
//
// Writes into distinct slots proceed without locking. Records must only be
// read after every writer has finished.
//
// ============================================================================

package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

var (
	// ErrCapacityExceeded means a reservation was attempted on a full store.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")
	// ErrInvalidSlot means Put was called with an index that was never reserved.
	ErrInvalidSlot = errors.New("store: slot out of range")
	// ErrNegativeCapacity is returned by New for a negative capacity.
	ErrNegativeCapacity = errors.New("store: negative capacity")
)

// Store is a preallocated record array plus its shared write cursor.
type Store struct {
	records []types.Record
	next    atomic.Int64
}

// New allocates a store able to hold exactly capacity records.
func New(capacity int) (*Store, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCapacity, capacity)
	}
	return &Store{records: make([]types.Record, capacity)}, nil
}

// Reserve atomically claims the next free slot and returns its index.
func (s *Store) Reserve() (int, error) {
	capacity := int64(len(s.records))
	for {
		n := s.next.Load()
		if n >= capacity {
			return 0, fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, capacity)
		}
		if s.next.CompareAndSwap(n, n+1) {
			return int(n), nil
		}
	}
}

// Put stores rec in a slot previously returned by Reserve.
func (s *Store) Put(idx int, rec types.Record) error {
	if idx < 0 || int64(idx) >= s.next.Load() {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, idx)
	}
	s.records[idx] = rec
	return nil
}

// Len returns the number of reserved slots.
func (s *Store) Len() int {
	return int(s.next.Load())
}

// Cap returns the allocated capacity.
func (s *Store) Cap() int {
	return len(s.records)
}

// Records returns the reserved prefix of the store. Only call it once all writers are done.
func (s *Store) Records() []types.Record {
	return s.records[:s.Len()]
}
