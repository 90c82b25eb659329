// ============================================================================
// Branch Inventory Run Report - Atomic YAML Summary
// ============================================================================
//
// Package: internal/report
// File: report.go
// Purpose: Persist a human-readable summary of one ingestion run
//
// Atomic write:
//   1. marshal the report to YAML
//   2. write <path>.tmp
//   3. rename <path>.tmp -> <path>
//
// A crash between steps leaves either the previous report or none, never a
// truncated one.
//
// ============================================================================

package report

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/branch-inventory/pkg/types"
)

// SchemaVersion is the report format version written by this package.
const SchemaVersion = 1

var (
	ErrCorruptedReport     = errors.New("report file is corrupted")
	ErrIncompatibleVersion = errors.New("report schema version is incompatible")
	ErrReportNotFound      = errors.New("report file not found")
)

// FileResult is the outcome of one source file.
type FileResult struct {
	Path   string          `yaml:"path"`
	State  types.FileState `yaml:"state"`
	Worker int             `yaml:"worker"`
	Lines  int             `yaml:"lines"`
	Error  string          `yaml:"error,omitempty"`
}

// Report summarizes a finished run.
type Report struct {
	SchemaVer  int            `yaml:"schema_version"`
	RunID      string         `yaml:"run_id"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	SourceDir  string         `yaml:"source_dir"`
	Inventory  string         `yaml:"inventory_file"`
	Workers    int            `yaml:"workers"`
	Stats      types.RunStats `yaml:"stats"`
	Files      []FileResult   `yaml:"files"`
	Pending    []string       `yaml:"pending,omitempty"` // files never finished, set after a fatal stop
	Error      string         `yaml:"error,omitempty"`
}

// Manager reads and writes the report file at one path.
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager returns a manager for path. Nothing is touched on disk.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Write stores r atomically, stamping the current schema version.
func (m *Manager) Write(r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.SchemaVer = SchemaVersion
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp report: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename report: %w", err)
	}
	return nil
}

// Load reads the report back.
func (m *Manager) Load() (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var r Report
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, fmt.Errorf("%w: %s", ErrReportNotFound, m.path)
		}
		return r, fmt.Errorf("failed to read report: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrCorruptedReport, err)
	}
	if r.SchemaVer != SchemaVersion {
		return r, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, r.SchemaVer, SchemaVersion)
	}
	return r, nil
}

// Exists reports whether a report file is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Path returns the report location.
func (m *Manager) Path() string {
	return m.path
}
