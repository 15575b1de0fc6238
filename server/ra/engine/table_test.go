package engine

import (
	"bytes"
	"testing"

	jerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraengine/xra-server/server/common"
)

func TestTableLoad(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	assert.Equal(t, []string{"id", "val"}, tbl.Columns)
	assert.Equal(t, 2, tbl.ColumnCount)
	assert.Equal(t, int64(3), tbl.RowCount)
	assert.Equal(t, 1, tbl.BlockCount)
	assert.Equal(t, []int{3}, tbl.RowsPerBlockCount)
	assert.Equal(t, []int64{3, 3}, tbl.DistinctValuesPerColumnCount)
	// 1 KB block, 2 integer columns
	assert.Equal(t, 125, tbl.MaxRowsPerBlock)
	assert.True(t, tbl.IsPermanent())
	// The distinct-value working sets are discarded after the load.
	assert.Nil(t, tbl.distinctSets)
}

func TestTableLoadBlockAccounting(t *testing.T) {
	eng := newTestEngine(t)
	// 250 columns -> one row per page.
	tbl := loadTable(t, eng, "wide", wideCSV(250, [2]int64{1, 0}, [2]int64{2, 0}, [2]int64{3, 0}))

	assert.Equal(t, 1, tbl.MaxRowsPerBlock)
	assert.Equal(t, 3, tbl.BlockCount)
	assert.Equal(t, []int{1, 1, 1}, tbl.RowsPerBlockCount)
	assert.Equal(t, int64(3), tbl.RowCount)
}

func TestTableLoadDistinctCounts(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,grade\n1,7\n2,7\n3,7\n4,9\n")

	assert.Equal(t, []int64{4, 2}, tbl.DistinctValuesPerColumnCount)
}

func TestTableLoadRejectsDuplicateColumns(t *testing.T) {
	eng := newTestEngine(t)
	writeSourceCSV(t, eng, "bad", "id,id\n1,2\n")
	tbl := NewTable(eng, "bad")
	err := tbl.Load()
	require.Error(t, err)
	assert.Equal(t, common.ErrDuplicateColumn, jerrors.Cause(err))
}

func TestTableLoadRejectsEmptyTable(t *testing.T) {
	eng := newTestEngine(t)
	writeSourceCSV(t, eng, "empty", "id,val\n")
	tbl := NewTable(eng, "empty")
	err := tbl.Load()
	require.Error(t, err)
	assert.Equal(t, common.ErrEmptyTable, jerrors.Cause(err))
}

func TestTableLoadRejectsRaggedRow(t *testing.T) {
	eng := newTestEngine(t)
	writeSourceCSV(t, eng, "ragged", "id,val\n1,2\n3\n")
	tbl := NewTable(eng, "ragged")
	require.Error(t, tbl.Load())
}

func TestCursorScanAcrossPages(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "wide",
		wideCSV(250, [2]int64{1, 0}, [2]int64{2, 0}, [2]int64{3, 0}, [2]int64{4, 0}, [2]int64{5, 0}))
	require.Equal(t, 5, tbl.BlockCount)

	rows := collectRows(t, tbl)
	require.Len(t, rows, 5)
	for i, row := range rows {
		assert.Equal(t, int64(i+1), row[0])
	}
}

func TestCursorCloneAdvancesIndependently(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	cursor, err := tbl.GetCursor()
	require.NoError(t, err)
	row, err := cursor.GetNext()
	require.NoError(t, err)
	require.Equal(t, int64(1), row[0])

	fork := cursor.Clone()
	forkRow, err := fork.GetNext()
	require.NoError(t, err)
	assert.Equal(t, int64(2), forkRow[0])

	// The primary has not moved.
	row, err = cursor.GetNext()
	require.NoError(t, err)
	assert.Equal(t, int64(2), row[0])
}

func TestTablePrint(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	var out bytes.Buffer
	require.NoError(t, tbl.Print(&out))
	text := out.String()
	assert.Contains(t, text, "id, val")
	assert.Contains(t, text, "1, 10")
	assert.Contains(t, text, "Row Count: 3")
}

func TestTablePrintHonorsPrintCount(t *testing.T) {
	eng := newTestEngine(t)
	eng.Cfg().PrintCount = 2
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	var out bytes.Buffer
	require.NoError(t, tbl.Print(&out))
	assert.Contains(t, out.String(), "2, 20")
	assert.NotContains(t, out.String(), "3, 30")
}

func TestExportReloadRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	src := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	cp, err := src.CopyAs("emp2")
	require.NoError(t, err)
	assert.False(t, cp.IsPermanent())
	require.NoError(t, cp.MakePermanent())
	assert.True(t, cp.IsPermanent())

	reloaded := NewTable(eng, "emp2")
	require.NoError(t, reloaded.Load())
	assert.Equal(t, src.Columns, reloaded.Columns)
	assert.Equal(t, collectRows(t, src), collectRows(t, reloaded))
	assert.Equal(t, src.DistinctValuesPerColumnCount, reloaded.DistinctValuesPerColumnCount)
}

func TestUnloadRemovesPages(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n2,20\n3,30\n")

	require.NoError(t, tbl.Unload())
	_, err := eng.Pool().Store().ReadPage("emp_Page0")
	require.Error(t, err)
	// The permanent CSV survives an unload.
	reloaded := NewTable(eng, "emp")
	require.NoError(t, reloaded.Load())
}

func TestUnloadTempTableDeletesSource(t *testing.T) {
	eng := newTestEngine(t)
	src := loadTable(t, eng, "emp", "id,val\n1,10\n")
	cp, err := src.CopyAs("scratch")
	require.NoError(t, err)

	require.NoError(t, cp.Unload())
	assert.NoFileExists(t, eng.TempSourcePath("scratch"))
}

func TestRenameColumn(t *testing.T) {
	eng := newTestEngine(t)
	tbl := loadTable(t, eng, "emp", "id,val\n1,10\n")

	tbl.RenameColumn("val", "salary")
	assert.True(t, tbl.IsColumn("salary"))
	assert.False(t, tbl.IsColumn("val"))
	idx, err := tbl.GetColumnIndex("salary")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}
