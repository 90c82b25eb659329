package archive

// ============================================================================
// Responsibilities:
// 1. Move a fully processed branch file into the processed directory
// 2. The rename is the durable "done" signal for the file
// 3. Never overwrite a file already archived under the same name
// ============================================================================

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrAlreadyArchived means the destination name is already taken in the processed directory.
	ErrAlreadyArchived = errors.New("archive: destination already exists")
	// ErrRenameFailed wraps the underlying rename error.
	ErrRenameFailed = errors.New("archive: rename failed")
)

// Mover renames source files into a processed directory.
type Mover struct {
	dir string
}

// New returns a mover targeting dir.
func New(dir string) *Mover {
	return &Mover{dir: dir}
}

// Dir returns the processed directory.
func (m *Mover) Dir() string {
	return m.dir
}

// EnsureDir creates the processed directory if it does not exist.
func (m *Mover) EnsureDir() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("archive: create %s: %w", m.dir, err)
	}
	return nil
}

// Claim moves src into the processed directory, keeping its base name, and
// returns the destination path. On failure src is left where it was.
func (m *Mover) Claim(src string) (string, error) {
	dst := filepath.Join(m.dir, filepath.Base(src))

	if _, err := os.Lstat(dst); err == nil {
		return dst, fmt.Errorf("%w: %s", ErrAlreadyArchived, dst)
	}

	if err := os.Rename(src, dst); err != nil {
		return dst, fmt.Errorf("%w: %s -> %s: %v", ErrRenameFailed, src, dst, err)
	}
	return dst, nil
}
