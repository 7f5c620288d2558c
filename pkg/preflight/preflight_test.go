package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureStorageRootUnset(t *testing.T) {
	assert.ErrorIs(t, EnsureStorageRoot(""), ErrStorageRootUnset)
	assert.ErrorIs(t, EnsureStorageRoot("   "), ErrStorageRootUnset)
}

func TestEnsureStorageRootCreatesTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "drive", "sync")
	require.NoError(t, EnsureStorageRoot(root))

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureStorageRootIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureStorageRoot(root))
	require.NoError(t, EnsureStorageRoot(root))
}

func TestEnsureStorageRootRejectsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := EnsureStorageRoot(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDeepestExistingAncestor(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "a", "b", "c")
	assert.Equal(t, dir, deepestExistingAncestor(missing))
	assert.Equal(t, dir, deepestExistingAncestor(dir))
}
