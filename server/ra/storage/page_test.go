package storage

import (
	"os"
	"testing"

	jerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraengine/xra-server/server/common"
)

func TestPageRoundTrip(t *testing.T) {
	for _, codec := range []string{"none", "snappy", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			store, err := NewPageStore(t.TempDir(), codec)
			require.NoError(t, err)

			rows := [][]int64{{1, -2, 3}, {40, 50, -60}, {7, 8, 9}}
			name := PageName("emp", 0)
			require.NoError(t, store.WritePage(name, rows, 3))

			page, err := store.ReadPage(name)
			require.NoError(t, err)
			assert.Equal(t, 3, page.NumRows)
			assert.Equal(t, 3, page.NumCols)
			assert.Equal(t, rows, page.Rows())
			assert.Equal(t, []int64{40, 50, -60}, page.GetRow(1))
			assert.Nil(t, page.GetRow(3))
		})
	}
}

func TestPagePartialRows(t *testing.T) {
	store, err := NewPageStore(t.TempDir(), "none")
	require.NoError(t, err)

	// The staging buffer is larger than the valid row count; only the
	// valid prefix may be persisted.
	rows := [][]int64{{1, 2}, {3, 4}, {0, 0}}
	name := PageName("emp", 1)
	require.NoError(t, store.WritePage(name, rows, 2))

	page, err := store.ReadPage(name)
	require.NoError(t, err)
	assert.Equal(t, 2, page.NumRows)
	assert.Equal(t, [][]int64{{1, 2}, {3, 4}}, page.Rows())
}

func TestPageChecksumDetectsCorruption(t *testing.T) {
	store, err := NewPageStore(t.TempDir(), "none")
	require.NoError(t, err)

	name := PageName("emp", 0)
	require.NoError(t, store.WritePage(name, [][]int64{{1, 2}}, 1))

	path := store.PageFilePath(name)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-2] = '9'
	require.NoError(t, os.WriteFile(path, raw, 0644))

	_, err = store.ReadPage(name)
	require.Error(t, err)
	assert.Equal(t, common.ErrPageChecksum, jerrors.Cause(err))
}

func TestPageRenameAndDelete(t *testing.T) {
	store, err := NewPageStore(t.TempDir(), "none")
	require.NoError(t, err)

	oldName := PageName("$sortTemp_emp", 0)
	newName := PageName("emp", 0)
	require.NoError(t, store.WritePage(oldName, [][]int64{{5}}, 1))
	require.NoError(t, store.WritePage(newName, [][]int64{{9}}, 1))

	// Rename replaces the previous page under the target name.
	require.NoError(t, store.RenamePage(oldName, newName))
	page, err := store.ReadPage(newName)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{5}}, page.Rows())
	_, err = store.ReadPage(oldName)
	require.Error(t, err)

	require.NoError(t, store.DeletePage(newName))
	_, err = store.ReadPage(newName)
	require.Error(t, err)
	// Deleting a missing page is not an error.
	require.NoError(t, store.DeletePage(newName))
}

func TestMatrixPageName(t *testing.T) {
	assert.Equal(t, "M_Page2_3", MatrixPageName("M", 2, 3))
	assert.Equal(t, "emp_Page7", PageName("emp", 7))
}
