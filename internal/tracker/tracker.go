// ============================================================================
// Branch Inventory - File Tracker, per-file state machine
// ============================================================================
//
// Package: internal/tracker
// File: tracker.go
// Purpose: Record the lifecycle of every source file of a run
//
// State machine:
//   Queued
//      ↓ worker claims the path from the queue
//   Claimed
//      ↓ worker acquires a file gate permit
//   Admitted ──open error──> OpenFailed (terminal)
//      ↓ input opened
//   Opened
//      ↓ every line parsed, stored and copied, input closed
//   Closed
//      ↓ rename into the processed directory
//   Archived (terminal) / ArchiveFailed (terminal)
//
// Any other transition is refused with ErrInvalidTransition. That catches a
// file being processed twice, which the work queue is meant to rule out.
//
// Concurrency:
//   - sync.RWMutex guards the entries map
//   - write operations take Lock, read operations take RLock
//
// ============================================================================

package tracker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrDuplicateFile is returned when a path is registered twice.
	ErrDuplicateFile = errors.New("tracker: file already registered")
	// ErrUnknownFile is returned for a path that was never registered.
	ErrUnknownFile = errors.New("tracker: file not registered")
	// ErrInvalidTransition is returned for a transition the state machine does not allow.
	ErrInvalidTransition = errors.New("tracker: invalid state transition")
)

var transitions = map[types.FileState][]types.FileState{
	types.StateQueued:   {types.StateClaimed},
	types.StateClaimed:  {types.StateAdmitted},
	types.StateAdmitted: {types.StateOpened, types.StateOpenFailed},
	types.StateOpened:   {types.StateClosed},
	types.StateClosed:   {types.StateArchived, types.StateArchiveFailed},
}

// Entry is the tracked state of one file.
type Entry struct {
	Path      string          `yaml:"path"`
	State     types.FileState `yaml:"state"`
	Worker    int             `yaml:"worker"`
	Lines     int             `yaml:"lines"`
	Error     string          `yaml:"error,omitempty"`
	UpdatedAt time.Time       `yaml:"updated_at"`
}

// Tracker holds one Entry per source file.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Register adds paths in the Queued state.
func (t *Tracker) Register(paths ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range paths {
		if _, exists := t.entries[p]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateFile, p)
		}
	}
	now := t.now()
	for _, p := range paths {
		t.entries[p] = &Entry{Path: p, State: types.StateQueued, Worker: -1, UpdatedAt: now}
	}
	return nil
}

// Claim moves path to Claimed and records which worker owns it.
func (t *Tracker) Claim(path string, worker int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.transitionLocked(path, types.StateClaimed)
	if err != nil {
		return err
	}
	e.Worker = worker
	return nil
}

// Transition moves path to state.
func (t *Tracker) Transition(path string, state types.FileState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.transitionLocked(path, state)
	return err
}

// Fail moves path to a terminal failure state and keeps the cause.
func (t *Tracker) Fail(path string, state types.FileState, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.transitionLocked(path, state)
	if err != nil {
		return err
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return nil
}

// AddLines adds n to the processed line count of path.
func (t *Tracker) AddLines(path string, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}
	e.Lines += n
	return nil
}

// Get returns a copy of the entry for path.
func (t *Tracker) Get(path string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of all entries sorted by path.
func (t *Tracker) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Stats counts entries per state.
func (t *Tracker) Stats() map[types.FileState]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make(map[types.FileState]int)
	for _, e := range t.entries {
		stats[e.State]++
	}
	return stats
}

// Pending returns the paths not yet in a terminal state, sorted.
func (t *Tracker) Pending() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for p, e := range t.entries {
		if !e.State.Terminal() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// transitionLocked assumes t.mu is held for writing.
func (t *Tracker) transitionLocked(path string, to types.FileState) (*Entry, error) {
	e, ok := t.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}
	for _, allowed := range transitions[e.State] {
		if allowed == to {
			e.State = to
			e.UpdatedAt = t.now()
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, path, e.State, to)
}
