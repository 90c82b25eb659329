package inventory

// ============================================================================
// Inventory Writer
// Responsibilities:
// 1. Own the single consolidated inventory file for the whole run
// 2. Append raw source lines, one per call, under one mutex
// 3. Flush and fsync on Close so nothing buffered is lost
// ============================================================================

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// FileInterface is the subset of *os.File the writer needs.
// Tests substitute it to inject write and sync failures.
type FileInterface interface {
	Write(p []byte) (n int, err error)
	Sync() error
	Close() error
}

// Writer appends raw lines to the inventory file. All appends across all
// workers are totally ordered by mu.
type Writer struct {
	mu     sync.Mutex
	file   FileInterface
	buf    *bufio.Writer
	path   string
	lines  int64
	closed bool
}

// Open opens (creating if needed) the inventory file in append mode.
// The file is opened once and shared by every worker for the run's duration.
func Open(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	return newWriter(file, path), nil
}

func newWriter(file FileInterface, path string) *Writer {
	return &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
		path: path,
	}
}

// Append writes line followed by '\n'. The line is copied verbatim.
func (w *Writer) Append(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	if _, err := w.buf.WriteString(line); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	w.lines++
	return nil
}

// Flush pushes buffered lines to the file without syncing.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.flushLocked(false)
}

// Lines returns the number of lines appended so far.
func (w *Writer) Lines() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Path returns the inventory file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes, syncs and closes the file. A closed writer must not be reused;
// a second Close is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.flushLocked(true)
	if err := w.file.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

// flushLocked assumes w.mu is held.
func (w *Writer) flushLocked(durable bool) error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if durable {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}
	}
	return nil
}
