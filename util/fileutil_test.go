package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	// Idempotent.
	require.NoError(t, EnsureDir(dir))
}

func TestListFilesByExt(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "x.ra", "note.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	assert.Equal(t, []string{"a", "b"}, ListFilesByExt(dir, ".csv"))
	assert.Equal(t, []string{"x"}, ListFilesByExt(dir, ".ra"))
	assert.Nil(t, ListFilesByExt(filepath.Join(dir, "missing"), ".csv"))
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, RemoveIfExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, RemoveIfExists(path))
	assert.False(t, FileExists(path))
}
