// ============================================================================
// Branch Inventory - Audit Log
// ============================================================================
//
// Package: internal/auditlog
// File: handler.go
// Purpose: Append run events to the shared log file as "<message>:<context>"
//
// The audit trail is a slog.Handler, so the pipeline logs once through slog
// and the event lands both on the console and in LOG_FILE (the two handlers
// are fanned out by the controller).
//
// Line format:
//   <message>:<context>\n
//   context is the record's "file" attribute when present, otherwise the
//   default context given to NewHandler (the source directory)
//
// Failure policy:
//   - the file is opened lazily, in append mode, and kept open
//   - an open or write failure is reported on the fallback writer (stderr)
//     and the message is dropped; the next message retries the open
//   - Handle never returns an error, logging must not abort a run
//
// Concurrency:
//   Handlers derived through WithAttrs/WithGroup share one sink and one mutex,
//   so lines from all workers are totally ordered and never interleave.
//
// ============================================================================

package auditlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FileKey is the attribute whose value becomes the line context.
const FileKey = "file"

// sink owns the log file. It is shared by every derived handler.
type sink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	fallback io.Writer
	closed   bool
}

// Handler writes Info-and-above records to the audit log file.
type Handler struct {
	sink           *sink
	level          slog.Leveler
	defaultContext string
	boundFile      string // FileKey value bound through WithAttrs
	inGroup        bool
}

// Options configures a Handler.
type Options struct {
	// Level is the minimum level written. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Fallback receives open and write failures. Defaults to os.Stderr.
	Fallback io.Writer
}

// NewHandler returns a handler appending to path. defaultContext is used for
// records that carry no file attribute.
func NewHandler(path, defaultContext string, opts *Options) *Handler {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.Fallback == nil {
		o.Fallback = os.Stderr
	}
	return &Handler{
		sink:           &sink{path: path, fallback: o.Fallback},
		level:          o.Level,
		defaultContext: defaultContext,
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	lineContext := h.defaultContext
	if h.boundFile != "" {
		lineContext = h.boundFile
	}
	if !h.inGroup {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == FileKey {
				lineContext = a.Value.String()
				return false
			}
			return true
		})
	}

	h.sink.write(r.Message + ":" + lineContext + "\n")
	return nil
}

// WithAttrs implements slog.Handler. Only FileKey is retained; other attributes
// have no place in the audit line.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.inGroup {
		return h
	}
	clone := *h
	for _, a := range attrs {
		if a.Key == FileKey {
			clone.boundFile = a.Value.String()
		}
	}
	return &clone
}

// WithGroup implements slog.Handler. Attributes inside a group never set the context.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inGroup = true
	return &clone
}

// Path returns the log file path.
func (h *Handler) Path() string {
	return h.sink.path
}

// Close closes the log file. Later records are reported on the fallback writer.
func (h *Handler) Close() error {
	s := h.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *sink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		fmt.Fprintf(s.fallback, "auditlog: closed, dropped: %s", line)
		return
	}

	if s.file == nil {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(s.fallback, "auditlog: open %s: %v\n", s.path, err)
			return
		}
		s.file = f
	}

	if _, err := io.WriteString(s.file, line); err != nil {
		fmt.Fprintf(s.fallback, "auditlog: write %s: %v\n", s.path, err)
		_ = s.file.Close()
		s.file = nil
	}
}
