package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "model.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemoveGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"training-000001-000000.txt", "training-000001-000001.txt", "training-000002-000000.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	n, err := RemoveGlob(filepath.Join(dir, "training-000001-*.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "training-000002-000000.txt", entries[0].Name())
}

func TestRemoveGlob_BadPattern(t *testing.T) {
	_, err := RemoveGlob("[")
	assert.Error(t, err)
}
