package engine

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/ra/storage"
)

func TestSortSinglePageDesc(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	require.NoError(t, tbl.Sort([]SortKey{{ColumnIndex: 1, Order: common.Desc}}))
	rows := collectRows(t, tbl)
	assert.Equal(t, [][]int64{{3, 30}, {2, 20}, {1, 10}}, rows)
	assert.Equal(t, int64(3), tbl.RowCount)
	assert.Equal(t, []int{3}, tbl.RowsPerBlockCount)
}

func TestSortTenPagesThreeWayMerge(t *testing.T) {
	eng := newTestEngine(t)
	// pool capacity 4 -> merge degree 3; 10 one-row pages need
	// ceil(log3 10) = 3 levels.
	require.Equal(t, 4, eng.Cfg().PoolCapacity)

	keys := [][2]int64{{7, 0}, {3, 1}, {9, 2}, {1, 3}, {8, 4}, {2, 5}, {10, 6}, {4, 7}, {6, 8}, {5, 9}}
	tbl := loadTable(t, eng, "wide", wideCSV(250, keys...))
	require.Equal(t, 10, tbl.BlockCount)

	require.NoError(t, tbl.Sort([]SortKey{{ColumnIndex: 0, Order: common.Asc}}))

	rows := collectRows(t, tbl)
	require.Len(t, rows, 10)
	for i, row := range rows {
		assert.Equal(t, int64(i+1), row[0])
	}
	assert.Equal(t, int64(10), tbl.RowCount)
	assert.Equal(t, 10, tbl.BlockCount)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, tbl.RowsPerBlockCount)
}

func TestSortDescMultiPage(t *testing.T) {
	eng := newTestEngine(t)
	keys := [][2]int64{{4, 0}, {1, 0}, {3, 0}, {5, 0}, {2, 0}}
	tbl := loadTable(t, eng, "wide", wideCSV(250, keys...))

	require.NoError(t, tbl.Sort([]SortKey{{ColumnIndex: 0, Order: common.Desc}}))
	rows := collectRows(t, tbl)
	for i, row := range rows {
		assert.Equal(t, int64(5-i), row[0])
	}
}

func TestSortIsStable(t *testing.T) {
	eng := newTestEngine(t)
	// Column 1 records the original order of rows with equal keys.
	keys := [][2]int64{{2, 0}, {1, 1}, {2, 2}, {1, 3}, {2, 4}, {1, 5}}
	tbl := loadTable(t, eng, "wide", wideCSV(250, keys...))

	require.NoError(t, tbl.Sort([]SortKey{{ColumnIndex: 0, Order: common.Asc}}))
	rows := collectRows(t, tbl)
	want := [][2]int64{{1, 1}, {1, 3}, {1, 5}, {2, 0}, {2, 2}, {2, 4}}
	for i, row := range rows {
		assert.Equal(t, want[i][0], row[0], "row %d key", i)
		assert.Equal(t, want[i][1], row[1], "row %d original position", i)
	}
}

func TestSortMultiKey(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "dept,salary\n1,50\n2,40\n1,70\n2,90\n1,70\n")

	require.NoError(t, tbl.Sort([]SortKey{
		{ColumnIndex: 0, Order: common.Asc},
		{ColumnIndex: 1, Order: common.Desc},
	}))
	rows := collectRows(t, tbl)
	assert.Equal(t, [][]int64{{1, 70}, {1, 70}, {1, 50}, {2, 90}, {2, 40}}, rows)
}

func TestSortIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	keys := [][2]int64{{7, 0}, {3, 1}, {9, 2}, {1, 3}, {8, 4}, {2, 5}}
	tbl := loadTable(t, eng, "wide", wideCSV(250, keys...))
	sortKeys := []SortKey{{ColumnIndex: 0, Order: common.Asc}}

	require.NoError(t, tbl.Sort(sortKeys))
	first := readPageFiles(t, eng, tbl)
	require.NoError(t, tbl.Sort(sortKeys))
	second := readPageFiles(t, eng, tbl)
	assert.Equal(t, first, second)
}

func readPageFiles(t *testing.T, eng *Engine, tbl *Table) []string {
	t.Helper()
	var pages []string
	for i := 0; i < tbl.BlockCount; i++ {
		raw, err := os.ReadFile(eng.Pool().Store().PageFilePath(storage.PageName(tbl.Name, i)))
		require.NoError(t, err)
		pages = append(pages, string(raw))
	}
	return pages
}

func TestSortRequiresKeys(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n")
	require.Error(t, tbl.Sort(nil))
}
