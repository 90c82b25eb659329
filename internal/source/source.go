// ============================================================================
// Branch Inventory - Source Directory
// ============================================================================
//
// Package: internal/source
// File: source.go
// Purpose: Enumerate the branch files of a run and iterate their lines
//
// One line definition is shared by counting and processing:
//   - every '\n'-terminated chunk is a line (terminator stripped, '\r' kept)
//   - a final chunk without '\n' is a line when it is non-empty
//
// CountLines and EachLine both go through readLines, so the capacity computed
// by the pre-sizing pass always equals the number of lines later processed.
//
// ============================================================================

package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNotDirectory is returned by List when the source path is not a directory.
	ErrNotDirectory = errors.New("source: not a directory")
)

// File is one regular file found in the source directory.
type File struct {
	Name string // base name
	Path string // source directory joined with Name
}

// List returns the regular files directly under dir, sorted by name.
// Subdirectories, symlinks and other special files are skipped.
func List(dir string) ([]File, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("source: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: read dir %s: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, File{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Paths returns the Path of every file, in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// CountLines returns the number of lines in the file at path.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	if err := readLines(f, func(string) error {
		n++
		return nil
	}); err != nil {
		return 0, fmt.Errorf("source: count %s: %w", path, err)
	}
	return n, nil
}

// CountAll sums CountLines over files. The per-file counts are returned in the same order.
// The first failure aborts the pass.
func CountAll(files []File) (total int, counts []int, err error) {
	counts = make([]int, len(files))
	for i, f := range files {
		n, err := CountLines(f.Path)
		if err != nil {
			return 0, nil, err
		}
		counts[i] = n
		total += n
	}
	return total, counts, nil
}

// EachLine calls fn for every line read from r. Iteration stops at the first
// error returned by fn, which is passed through unchanged.
func EachLine(r io.Reader, fn func(line string) error) error {
	return readLines(r, fn)
}

func readLines(r io.Reader, fn func(line string) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			if ferr := fn(line[:len(line)-1]); ferr != nil {
				return ferr
			}
		} else if line != "" {
			// unterminated last line
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
