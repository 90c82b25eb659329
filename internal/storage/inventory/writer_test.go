package inventory

// ============================================================================
// Inventory Writer Test File
// Purpose: Verify append ordering, concurrent safety and close semantics
// ============================================================================

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingFile implements FileInterface with injectable failures
type failingFile struct {
	writeErr error
	syncErr  error
	closed   bool
}

func (f *failingFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *failingFile) Sync() error  { return f.syncErr }
func (f *failingFile) Close() error { f.closed = true; return nil }

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// ============================================================================
// Basic Functionality Tests
// ============================================================================

// TestOpenAndAppend tests appending raw lines verbatim
func TestOpenAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	w, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Append("OP001;a;b;US1;COMPRA;1;2.5;Correcto;"))
	require.NoError(t, w.Append("OP002;a;b;US2;VENTA;2;3.5;Error;"))
	assert.Equal(t, int64(2), w.Lines())
	require.NoError(t, w.Close())

	assert.Equal(t, []string{
		"OP001;a;b;US1;COMPRA;1;2.5;Correcto;",
		"OP002;a;b;US2;VENTA;2;3.5;Error;",
	}, readLines(t, path))
}

// TestOpenAppendsToExisting tests that an existing inventory is extended, not truncated
func TestOpenAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0644))

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append("next"))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"previous", "next"}, readLines(t, path))
}

// TestOpenFailure tests the fatal open path
func TestOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "inventory.csv"))
	assert.ErrorIs(t, err, ErrOpenFailed)
}

// TestEmptyInventoryCreated tests that a run with no lines still creates the file
func TestEmptyInventoryCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

// TestFlush tests that Flush makes lines visible before Close
func TestFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append("line"))
	require.NoError(t, w.Flush())
	assert.Equal(t, []string{"line"}, readLines(t, path))
}

// ============================================================================
// Close Semantics Tests
// ============================================================================

// TestAppendAfterClose tests that a closed writer refuses appends
func TestAppendAfterClose(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "inventory.csv"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Append("late"), ErrWriterClosed)
	assert.ErrorIs(t, w.Flush(), ErrWriterClosed)
	assert.NoError(t, w.Close(), "second Close is a no-op")
}

// TestCloseReportsSyncFailure tests that fsync errors surface
func TestCloseReportsSyncFailure(t *testing.T) {
	f := &failingFile{syncErr: errors.New("disk gone")}
	w := newWriter(f, "mock")

	require.NoError(t, w.Append("x"))
	err := w.Close()
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.True(t, f.closed)
}

// TestCloseReportsWriteFailure tests that buffered write errors surface on flush
func TestCloseReportsWriteFailure(t *testing.T) {
	f := &failingFile{writeErr: errors.New("no space")}
	w := newWriter(f, "mock")

	require.NoError(t, w.Append("buffered"))
	assert.ErrorIs(t, w.Close(), ErrWriteFailed)
}

// ============================================================================
// Concurrency Tests
// ============================================================================

// TestConcurrentAppend tests that concurrent appends never interleave or get lost
func TestConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	w, err := Open(path)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				line := fmt.Sprintf("W%d;%04d;%s", worker, j, strings.Repeat("x", 100))
				assert.NoError(t, w.Append(line))
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	lines := readLines(t, path)
	require.Len(t, lines, workers*perWorker)

	want := make([]string, 0, workers*perWorker)
	for i := 0; i < workers; i++ {
		for j := 0; j < perWorker; j++ {
			want = append(want, fmt.Sprintf("W%d;%04d;%s", i, j, strings.Repeat("x", 100)))
		}
	}
	sort.Strings(want)
	sort.Strings(lines)
	assert.Equal(t, want, lines)
}
