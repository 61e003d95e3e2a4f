package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_ExclusiveAcrossHandles(t *testing.T) {
	// Given: two lock handles on the same corpus
	corpus := filepath.Join(t.TempDir(), "data", "corpus.db")
	first := NewFileLock(corpus)
	second := NewFileLock(corpus)
	assert.Equal(t, corpus+".lock", first.Path())

	// When: the first holds the lock
	require.NoError(t, first.Lock())

	// Then: the second cannot take it
	ok, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	// And: it can after release
	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
	require.NoError(t, second.Unlock())
}
