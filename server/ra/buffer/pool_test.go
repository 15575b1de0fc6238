package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraengine/xra-server/server/ra/storage"
)

func newTestPool(t *testing.T, capacity int) (*Pool, *storage.PageStore) {
	t.Helper()
	store, err := storage.NewPageStore(t.TempDir(), "none")
	require.NoError(t, err)
	return NewPool(store, capacity), store
}

func writeTestPage(t *testing.T, store *storage.PageStore, name string, v int64) {
	t.Helper()
	require.NoError(t, store.WritePage(name, [][]int64{{v}}, 1))
}

func TestPoolFIFOEviction(t *testing.T) {
	pool, store := newTestPool(t, 3)
	for _, name := range []string{"A", "B", "C", "D"} {
		writeTestPage(t, store, name, int64(name[0]))
	}

	for _, name := range []string{"A", "B", "C"} {
		_, err := pool.GetPage(name)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, pool.Len())

	// D evicts A, the oldest entry.
	_, err := pool.GetPage("D")
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Len())
	assert.False(t, pool.Has("A"))
	assert.True(t, pool.Has("B"))
	assert.True(t, pool.Has("C"))
	assert.True(t, pool.Has("D"))

	// Re-reading A is a miss and evicts B next, not D.
	_, misses, _ := pool.Stats()
	_, err = pool.GetPage("A")
	require.NoError(t, err)
	_, missesAfter, _ := pool.Stats()
	assert.Equal(t, misses+1, missesAfter)
	assert.False(t, pool.Has("B"))
	assert.True(t, pool.Has("D"))
}

func TestPoolHitsDoNotPromote(t *testing.T) {
	pool, store := newTestPool(t, 2)
	for _, name := range []string{"A", "B", "C"} {
		writeTestPage(t, store, name, 1)
	}

	_, err := pool.GetPage("A")
	require.NoError(t, err)
	_, err = pool.GetPage("B")
	require.NoError(t, err)
	// A hit on A must not move it behind B in FIFO order.
	_, err = pool.GetPage("A")
	require.NoError(t, err)

	_, err = pool.GetPage("C")
	require.NoError(t, err)
	assert.False(t, pool.Has("A"))
	assert.True(t, pool.Has("B"))
}

func TestPoolWriteThroughInvalidates(t *testing.T) {
	pool, store := newTestPool(t, 3)
	writeTestPage(t, store, "A", 1)

	page, err := pool.GetPage("A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.GetRow(0)[0])

	// WritePage goes straight to disk and must not leave the stale
	// copy resident nor insert the new one.
	require.NoError(t, pool.WritePage("A", [][]int64{{2}}, 1))
	assert.False(t, pool.Has("A"))

	page, err = pool.GetPage("A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.GetRow(0)[0])
}

func TestPoolDeleteFromPool(t *testing.T) {
	pool, store := newTestPool(t, 3)
	writeTestPage(t, store, "A", 1)

	_, err := pool.GetPage("A")
	require.NoError(t, err)
	pool.DeleteFromPool("A")
	assert.False(t, pool.Has("A"))
	assert.Equal(t, 0, pool.Len())

	// The file is untouched; the next read misses and reloads.
	_, err = pool.GetPage("A")
	require.NoError(t, err)
}

func TestPoolRenameDropsBothNames(t *testing.T) {
	pool, store := newTestPool(t, 3)
	writeTestPage(t, store, "tmp", 7)
	writeTestPage(t, store, "dst", 9)

	_, err := pool.GetPage("dst")
	require.NoError(t, err)
	require.NoError(t, pool.RenamePage("tmp", "dst"))
	assert.False(t, pool.Has("dst"))

	page, err := pool.GetPage("dst")
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.GetRow(0)[0])
}

func TestPoolStats(t *testing.T) {
	pool, store := newTestPool(t, 2)
	writeTestPage(t, store, "A", 1)

	_, err := pool.GetPage("A")
	require.NoError(t, err)
	_, err = pool.GetPage("A")
	require.NoError(t, err)

	hits, misses, _ := pool.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}
