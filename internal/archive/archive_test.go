package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClaimMovesFile tests the success path
func TestClaimMovesFile(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "files")
	dstDir := filepath.Join(root, "archivosProcesados")
	require.NoError(t, os.Mkdir(srcDir, 0755))

	src := filepath.Join(srcDir, "sucursal1.csv")
	require.NoError(t, os.WriteFile(src, []byte("a\n"), 0644))

	m := New(dstDir)
	assert.Equal(t, dstDir, m.Dir())
	require.NoError(t, m.EnsureDir())

	dst, err := m.Claim(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dstDir, "sucursal1.csv"), dst)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source must be gone after archiving")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))
}

// TestEnsureDirIdempotent tests repeated directory creation
func TestEnsureDirIdempotent(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "a", "b"))
	require.NoError(t, m.EnsureDir())
	require.NoError(t, m.EnsureDir())
}

// TestClaimMissingDestination tests that a missing processed dir leaves the source in place
func TestClaimMissingDestination(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "sucursal2.csv")
	require.NoError(t, os.WriteFile(src, []byte("b\n"), 0644))

	m := New(filepath.Join(root, "does-not-exist"))
	_, err := m.Claim(src)
	assert.ErrorIs(t, err, ErrRenameFailed)

	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "source must stay in place on failure")
}

// TestClaimDoesNotOverwrite tests that an archived name is never clobbered
func TestClaimDoesNotOverwrite(t *testing.T) {
	root := t.TempDir()
	dstDir := filepath.Join(root, "done")
	require.NoError(t, os.Mkdir(dstDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "s.csv"), []byte("old\n"), 0644))

	src := filepath.Join(root, "s.csv")
	require.NoError(t, os.WriteFile(src, []byte("new\n"), 0644))

	_, err := New(dstDir).Claim(src)
	assert.ErrorIs(t, err, ErrAlreadyArchived)

	data, err := os.ReadFile(filepath.Join(dstDir, "s.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data))
}
