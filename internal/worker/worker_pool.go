// ============================================================================
// Branch Inventory Worker Pool - Concurrent File Processing
// ============================================================================
//
// Package: internal/worker
// File: worker_pool.go
// Purpose: Run N workers that drain the work queue, one file at a time
//
// Architecture:
//
//   ┌────────────┐   Claim()   ┌──────────┐  Acquire()  ┌────────┐
//   │ WorkQueue  │ ──────────> │ worker i │ ──────────> │  Gate  │
//   └────────────┘             └──────────┘             └────────┘
//                                   │
//               ┌───────────────────┼─────────────────────┐
//               v                   v                     v
//         Store.Reserve()    Inventory.Append()    Archive.Claim()
//
// Lifecycle:
//   1. NewPool() - validate collaborators
//   2. Run(ctx)  - launch Workers goroutines through an errgroup, join once
//
// Workers exit when the queue is empty. Per-file open and archive failures
// are logged and absorbed. A capacity violation, an inventory write failure
// or a read failure is returned from Run and cancels every other worker
// before its next line.
//
// ============================================================================

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChuLiYu/branch-inventory/internal/gate"
	"github.com/ChuLiYu/branch-inventory/internal/metrics"
	"github.com/ChuLiYu/branch-inventory/internal/queue"
	"github.com/ChuLiYu/branch-inventory/internal/store"
	"github.com/ChuLiYu/branch-inventory/internal/tracker"
)

// LineWriter receives every raw line read from a source file. Flush is called
// once per file, before the file is archived.
type LineWriter interface {
	Append(line string) error
	Flush() error
}

// Archiver moves a fully processed file out of the source directory.
type Archiver interface {
	Claim(src string) (string, error)
}

// Config holds the pool tuning knobs.
type Config struct {
	Workers       int           // number of goroutines, > 0
	SimulateSleep time.Duration // artificial delay after admission, per file
	StrictParse   bool          // log and count lines with fewer than 8 fields
}

// Deps are the shared collaborators every worker uses.
type Deps struct {
	Queue     *queue.Queue
	Gate      *gate.Gate
	Store     *store.Store
	Inventory LineWriter
	Archive   Archiver
	Tracker   *tracker.Tracker
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Pool runs workers over a prefilled queue.
type Pool struct {
	deps Deps
	cfg  Config

	shortLines atomic.Int64

	mu      sync.Mutex
	started bool
}

// NewPool validates deps and cfg and returns a pool ready to Run.
// A nil Logger falls back to slog.Default().
func NewPool(deps Deps, cfg Config) (*Pool, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers)
	}
	switch {
	case deps.Queue == nil:
		return nil, fmt.Errorf("%w: queue", ErrMissingDependency)
	case deps.Gate == nil:
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	case deps.Inventory == nil:
		return nil, fmt.Errorf("%w: inventory", ErrMissingDependency)
	case deps.Archive == nil:
		return nil, fmt.Errorf("%w: archive", ErrMissingDependency)
	case deps.Tracker == nil:
		return nil, fmt.Errorf("%w: tracker", ErrMissingDependency)
	case deps.Metrics == nil:
		return nil, fmt.Errorf("%w: metrics", ErrMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pool{deps: deps, cfg: cfg}, nil
}

// Run launches the workers and blocks until all of them have exited.
// It returns the first fatal error any worker hit, or nil.
func (p *Pool) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrPoolStarted
	}
	p.started = true
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		w := newWorker(i, p)
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	return g.Wait()
}

// ShortLines returns how many lines had fewer than 8 fields. Only counted
// when StrictParse is enabled.
func (p *Pool) ShortLines() int {
	return int(p.shortLines.Load())
}
