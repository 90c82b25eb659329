// ============================================================================
// Branch Inventory Controller - Run Orchestration
// ============================================================================
//
// Package: internal/controller
// File: controller.go
// Purpose: Drive one ingestion run from configuration to report
//
// Run sequence:
//
//   1. logger up            (console + audit log file)
//   2. list source dir      fatal on failure
//   3. count every file     fatal on failure
//   4. allocate store       capacity = total line count
//   5. processed dir        created if missing; on failure every file ends ArchiveFailed
//   6. open inventory       once for the whole run, fatal on failure
//   7. worker pool          N workers drain the queue
//   8. close inventory      flush + fsync
//   9. end log, report
//
// Nothing is written to the inventory before steps 2-4 succeed, so a missing
// source directory leaves no inventory file behind.
//
// ============================================================================

package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	slogmulti "github.com/samber/slog-multi"

	"github.com/ChuLiYu/branch-inventory/internal/archive"
	"github.com/ChuLiYu/branch-inventory/internal/auditlog"
	"github.com/ChuLiYu/branch-inventory/internal/config"
	"github.com/ChuLiYu/branch-inventory/internal/gate"
	"github.com/ChuLiYu/branch-inventory/internal/logctx"
	"github.com/ChuLiYu/branch-inventory/internal/metrics"
	"github.com/ChuLiYu/branch-inventory/internal/queue"
	"github.com/ChuLiYu/branch-inventory/internal/report"
	"github.com/ChuLiYu/branch-inventory/internal/source"
	"github.com/ChuLiYu/branch-inventory/internal/storage/inventory"
	"github.com/ChuLiYu/branch-inventory/internal/store"
	"github.com/ChuLiYu/branch-inventory/internal/tracker"
	"github.com/ChuLiYu/branch-inventory/internal/worker"
	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

// Audit log messages.
const (
	MsgStart            = "program started"
	MsgEnd              = "program finished"
	MsgSourceFailed     = "error opening source directory"
	MsgCountFailed      = "error counting lines"
	MsgInventoryFail    = "error opening inventory file"
	MsgProcessedDirFail = "error creating processed directory"
)

// ErrRecordDrift means the inventory and the record store saw a different
// number of lines in a run that otherwise succeeded.
var ErrRecordDrift = errors.New("controller: inventory line count does not match record store")

// Option customizes a Controller.
type Option func(*Controller)

// WithConsole sets where the console log goes. Defaults to os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(c *Controller) { c.console = w }
}

// WithConsoleLevel sets the console log level. Defaults to slog.LevelInfo.
func WithConsoleLevel(l slog.Leveler) Option {
	return func(c *Controller) { c.consoleLevel = l }
}

// WithRegistry sets the Prometheus registry metrics are registered with.
// Defaults to a fresh registry per run.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Controller) { c.registry = reg }
}

// Controller runs the pipeline for one configuration.
type Controller struct {
	cfg          config.Config
	console      io.Writer
	consoleLevel slog.Leveler
	registry     *prometheus.Registry

	runID   string
	tracker *tracker.Tracker
}

// New returns a controller for cfg. cfg must already be validated.
func New(cfg config.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:          cfg,
		console:      os.Stdout,
		consoleLevel: slog.LevelInfo,
		runID:        uuid.NewString(),
		tracker:      tracker.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
	}
	return c
}

// Run executes one ingestion run with default options.
func Run(ctx context.Context, cfg config.Config) (types.RunStats, error) {
	return New(cfg).Run(ctx)
}

// RunID returns the identifier stamped on this run's logs and report.
func (c *Controller) RunID() string {
	return c.runID
}

// Tracker exposes per-file outcomes once Run has returned.
func (c *Controller) Tracker() *tracker.Tracker {
	return c.tracker
}

// Run executes the pipeline. The returned error is non-nil for every
// condition that must end the process with a non-zero status.
func (c *Controller) Run(ctx context.Context) (types.RunStats, error) {
	started := time.Now()

	audit := auditlog.NewHandler(c.cfg.LogFile, c.cfg.SourceDir, nil)
	defer audit.Close()
	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(c.console, &slog.HandlerOptions{Level: c.consoleLevel}),
		audit,
	)).With("run_id", c.runID)
	ctx = logctx.WithLogger(ctx, logger)

	logger.Info(MsgStart, "workers", c.cfg.Workers, "source", c.cfg.SourceDir)

	stats, runErr := c.run(ctx)

	logger.Info(MsgEnd,
		"duration", time.Since(started),
		"files", stats.Files,
		"records", stats.Records,
		"archived", stats.Archived)

	if c.cfg.ReportFile != "" {
		c.writeReport(ctx, started, stats, runErr)
	}
	return stats, runErr
}

func (c *Controller) run(ctx context.Context) (types.RunStats, error) {
	log := logctx.FromContext(ctx)
	var stats types.RunStats

	files, err := source.List(c.cfg.SourceDir)
	if err != nil {
		log.Error(MsgSourceFailed, "error", err)
		return stats, fmt.Errorf("listing source directory: %w", err)
	}
	stats.Files = len(files)

	total, counts, err := source.CountAll(files)
	if err != nil {
		log.Error(MsgCountFailed, "error", err)
		return stats, fmt.Errorf("counting lines: %w", err)
	}
	for i, f := range files {
		log.Debug("file counted", auditlog.FileKey, f.Path, "lines", counts[i])
	}
	stats.Capacity = total

	st, err := store.New(total)
	if err != nil {
		return stats, fmt.Errorf("allocating record store: %w", err)
	}

	// an unusable processed directory only costs the archive step: every
	// file still reaches the inventory and ends up ArchiveFailed
	mover := archive.New(c.cfg.ProcessedDir)
	if err := mover.EnsureDir(); err != nil {
		log.Warn(MsgProcessedDirFail, "error", err, "dir", mover.Dir())
	}

	g, err := gate.New(c.cfg.GateLimit())
	if err != nil {
		return stats, err
	}

	paths := source.Paths(files)
	if err := c.tracker.Register(paths...); err != nil {
		return stats, err
	}

	inv, err := inventory.Open(c.cfg.InventoryFile)
	if err != nil {
		log.Error(MsgInventoryFail, "error", err)
		return stats, err
	}

	q := queue.New(paths)
	log.Debug("processing started",
		"files", q.Size(),
		"capacity", st.Cap(),
		"max_open_files", g.Limit())

	collector := metrics.NewCollector(c.registry)
	collector.SetCapacity(total)
	if c.cfg.MetricsPort > 0 {
		stop := c.serveMetrics(log)
		defer stop()
	}

	pool, err := worker.NewPool(worker.Deps{
		Queue:     q,
		Gate:      g,
		Store:     st,
		Inventory: inv,
		Archive:   mover,
		Tracker:   c.tracker,
		Metrics:   collector,
		Logger:    log,
	}, worker.Config{
		Workers:       c.cfg.Workers,
		SimulateSleep: c.cfg.Sleep(),
		StrictParse:   c.cfg.StrictParse,
	})
	if err != nil {
		inv.Close()
		return stats, err
	}

	var result *multierror.Error
	if err := pool.Run(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := inv.Close(); err != nil {
		log.Error("error closing inventory file", "error", err)
		result = multierror.Append(result, err)
	}
	if result == nil && inv.Lines() != int64(st.Len()) {
		err := fmt.Errorf("%w: %d records stored, %d lines written to %s",
			ErrRecordDrift, st.Len(), inv.Lines(), inv.Path())
		log.Error("record store and inventory disagree", "error", err)
		result = multierror.Append(result, err)
	}

	byState := c.tracker.Stats()
	stats.Records = st.Len()
	stats.Archived = byState[types.StateArchived]
	stats.ArchiveFailed = byState[types.StateArchiveFailed]
	stats.OpenFailed = byState[types.StateOpenFailed]
	stats.ShortLines = pool.ShortLines()
	for _, rec := range st.Records() {
		stats.Amount += rec.Amount
	}

	return stats, result.ErrorOrNil()
}

// serveMetrics starts the /metrics endpoint and returns its shutdown func.
func (c *Controller) serveMetrics(log *slog.Logger) func() {
	srv := metrics.NewServer(c.cfg.MetricsPort, c.registry)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", "error", err)
		}
	}()
	log.Info("metrics endpoint listening", "addr", srv.Addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// writeReport persists the run summary. Failures are logged, never returned.
func (c *Controller) writeReport(ctx context.Context, started time.Time, stats types.RunStats, runErr error) {
	log := logctx.FromContext(ctx)

	entries := c.tracker.Entries()
	files := make([]report.FileResult, 0, len(entries))
	for _, e := range entries {
		files = append(files, report.FileResult{
			Path:   e.Path,
			State:  e.State,
			Worker: e.Worker,
			Lines:  e.Lines,
			Error:  e.Error,
		})
	}

	r := report.Report{
		RunID:      c.runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		SourceDir:  c.cfg.SourceDir,
		Inventory:  c.cfg.InventoryFile,
		Workers:    c.cfg.Workers,
		Stats:      stats,
		Files:      files,
		Pending:    c.tracker.Pending(),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}

	m := report.NewManager(c.cfg.ReportFile)
	if m.Exists() {
		log.Debug("replacing previous run report", "path", m.Path())
	}
	if err := m.Write(r); err != nil {
		log.Warn("could not write run report", "error", err, "path", c.cfg.ReportFile)
	}
}
