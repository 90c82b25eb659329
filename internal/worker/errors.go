package worker

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Definitions
// ============================================================================

var (
	// ErrPoolStarted is returned when Run is called a second time.
	ErrPoolStarted = errors.New("worker pool already started")
	// ErrInvalidWorkers is returned by NewPool for a worker count below 1.
	ErrInvalidWorkers = errors.New("worker count must be positive")
	// ErrMissingDependency is returned by NewPool when a required collaborator is nil.
	ErrMissingDependency = errors.New("worker pool dependency missing")
	// ErrReadFailed wraps an I/O error while reading an already opened file.
	ErrReadFailed = errors.New("reading source file failed")
)

// CapacityError reports a slot reservation refused by the record store.
// It always stops the run: either a file was claimed twice or the pre-sizing
// pass miscounted.
type CapacityError struct {
	File string
	Err  error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity violation while processing %s: %v", e.File, e.Err)
}

func (e *CapacityError) Unwrap() error { return e.Err }
