// ============================================================================
// Branch Inventory Worker - Per-File Processing Loop
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Purpose: One goroutine that claims files until the queue is empty
//
// Per-file loop:
//
//   Claim ─> Acquire gate ─> delay ─> Open ─┬─> lines* ─> Close ─> Archive ─> Release
//                                           └─> open failed ─> Release
//
// For each line:
//   1. parse into a Record (tolerant; strict mode only counts short lines)
//   2. Reserve a store slot and Put the record into it
//   3. Append the raw line to the inventory
//
// The inventory is flushed after the last line, before the archive move.
//
// Every state change is mirrored into the tracker.
//
// ============================================================================

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ChuLiYu/branch-inventory/internal/auditlog"
	"github.com/ChuLiYu/branch-inventory/internal/record"
	"github.com/ChuLiYu/branch-inventory/internal/source"
	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

// Worker is one processing goroutine of a Pool.
type Worker struct {
	id   int
	pool *Pool
}

func newWorker(id int, pool *Pool) *Worker {
	return &Worker{id: id, pool: pool}
}

// run claims and processes files until the queue is drained or ctx is cancelled.
func (w *Worker) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, ok := w.pool.deps.Queue.Claim()
		if !ok {
			return nil
		}
		if err := w.process(ctx, path); err != nil {
			return err
		}
	}
}

// process handles one claimed file. Only fatal errors are returned.
func (w *Worker) process(ctx context.Context, path string) error {
	d := w.pool.deps
	log := d.Logger.With(auditlog.FileKey, path, "worker", w.id)

	if err := d.Tracker.Claim(path, w.id); err != nil {
		return err
	}
	d.Metrics.RecordClaim()

	if err := d.Gate.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		d.Gate.Release()
		d.Metrics.SetInFlight(d.Gate.InFlight())
	}()
	d.Metrics.SetInFlight(d.Gate.InFlight())
	if err := d.Tracker.Transition(path, types.StateAdmitted); err != nil {
		return err
	}
	start := time.Now()

	if delay := w.pool.cfg.SimulateSleep; delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	f, err := os.Open(path)
	if err != nil {
		log.Error("error opening data file", "error", err)
		d.Metrics.RecordOpenFailed()
		return d.Tracker.Fail(path, types.StateOpenFailed, err)
	}
	if err := d.Tracker.Transition(path, types.StateOpened); err != nil {
		f.Close()
		return err
	}

	lines, err := w.consume(ctx, log, path, f)
	f.Close()
	if err != nil {
		var capErr *CapacityError
		if errors.As(err, &capErr) {
			log.Error("record store capacity exceeded", "error", err)
		} else if !errors.Is(err, context.Canceled) {
			log.Error("error processing data file", "error", err)
		}
		return err
	}

	// lines of an archived file must already be in the inventory file
	if err := d.Inventory.Flush(); err != nil {
		log.Error("error processing data file", "error", err)
		return err
	}
	if err := d.Tracker.Transition(path, types.StateClosed); err != nil {
		return err
	}
	d.Metrics.RecordProcessed(time.Since(start))
	log.Info("file processed", "lines", lines)

	dst, err := d.Archive.Claim(path)
	if err != nil {
		log.Error("could not move file", "error", err)
		d.Metrics.RecordArchiveFailed()
		return d.Tracker.Fail(path, types.StateArchiveFailed, err)
	}
	d.Metrics.RecordArchived()
	log.Debug("file archived", "dest", dst)
	return d.Tracker.Transition(path, types.StateArchived)
}

// consume feeds every line of f through parse, store and inventory.
func (w *Worker) consume(ctx context.Context, log *slog.Logger, path string, f *os.File) (int, error) {
	d := w.pool.deps
	lines := 0
	var lineErr error

	err := source.EachLine(f, func(line string) error {
		lineErr = w.handleLine(ctx, log, path, line, lines+1)
		if lineErr == nil {
			lines++
		}
		return lineErr
	})
	if err != nil && lineErr == nil {
		return lines, fmt.Errorf("%w: %s: %v", ErrReadFailed, path, err)
	}
	if err == nil {
		log.Debug("file consumed", "lines", lines, "store_used", d.Store.Len())
	}
	return lines, err
}

// handleLine processes line number n of path.
func (w *Worker) handleLine(ctx context.Context, log *slog.Logger, path, line string, n int) error {
	d := w.pool.deps
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, perr := record.ParseStrict(line)
	if perr != nil && w.pool.cfg.StrictParse {
		w.pool.shortLines.Add(1)
		d.Metrics.RecordShortLine()
		log.Warn("short record line", "line", n, "error", perr)
	}

	idx, err := d.Store.Reserve()
	if err != nil {
		return &CapacityError{File: path, Err: err}
	}
	if err := d.Store.Put(idx, rec); err != nil {
		return &CapacityError{File: path, Err: err}
	}
	if err := d.Inventory.Append(line); err != nil {
		return err
	}

	d.Metrics.RecordLine(d.Store.Len())
	return d.Tracker.AddLines(path, 1)
}
