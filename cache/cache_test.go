package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDir(t *testing.T) {
	old := Dir
	Dir = t.TempDir()
	t.Cleanup(func() { Dir = old })
}

func TestWriteReadClear(t *testing.T) {
	useTempDir(t)

	require.NoError(t, Write("post", 1, "<p>hello</p>"))

	html, ok := Read("post", 1, time.Hour)
	require.True(t, ok)
	assert.Equal(t, "<p>hello</p>", html)

	require.NoError(t, Clear("post", 1))
	_, ok = Read("post", 1, time.Hour)
	assert.False(t, ok)
}

func TestRead_MissReturnsFalse(t *testing.T) {
	useTempDir(t)

	_, ok := Read("post", 42, time.Hour)
	assert.False(t, ok)
}

func TestRead_ExpiredEntryIsAMiss(t *testing.T) {
	useTempDir(t)

	require.NoError(t, Write("post", 1, "stale"))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(Path("post", 1), old, old))

	_, ok := Read("post", 1, time.Hour)
	assert.False(t, ok)
}

func TestClear_MissingFileIsNotAnError(t *testing.T) {
	useTempDir(t)

	assert.NoError(t, Clear("post", 99))
}

func TestPath_SeparatesKindsAndIDs(t *testing.T) {
	useTempDir(t)

	postPath := Path("post", 1)
	nippoPath := Path("nippo", 1)
	otherPath := Path("post", 2)

	assert.NotEqual(t, postPath, nippoPath)
	assert.NotEqual(t, postPath, otherPath)
	assert.Equal(t, filepath.Join(Dir, "post"), filepath.Dir(postPath))
}
