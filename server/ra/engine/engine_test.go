package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraengine/xra-server/server/conf"
)

// newTestEngine builds an engine over a throwaway data directory.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := conf.NewCfg()
	cfg.DataDir = t.TempDir()
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	return eng
}

// writeSourceCSV places a CSV in the engine's data directory.
func writeSourceCSV(t *testing.T, eng *Engine, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(eng.SourcePath(name), []byte(content), 0644))
}

// loadTable writes a CSV and loads it as a permanent table.
func loadTable(t *testing.T, eng *Engine, name, content string) *Table {
	t.Helper()
	writeSourceCSV(t, eng, name, content)
	tbl := NewTable(eng, name)
	require.NoError(t, tbl.Load())
	eng.Tables().Insert(tbl)
	return tbl
}

// makeTempTable materializes rows directly into a temporary table.
func makeTempTable(t *testing.T, eng *Engine, name string, cols []string, rows [][]int64) *Table {
	t.Helper()
	tbl, err := NewTempTable(eng, name, cols)
	require.NoError(t, err)
	tbl.beginWrite()
	for _, row := range rows {
		require.NoError(t, tbl.appendRow(row))
	}
	require.NoError(t, tbl.endWrite())
	return tbl
}

// collectRows drains a full cursor scan.
func collectRows(t *testing.T, tbl *Table) [][]int64 {
	t.Helper()
	cursor, err := tbl.GetCursor()
	require.NoError(t, err)
	var rows [][]int64
	for {
		row, err := cursor.GetNext()
		require.NoError(t, err)
		if row == nil {
			return rows
		}
		rows = append(rows, append([]int64(nil), row...))
	}
}

// wideCSV builds a CSV of the given column width whose first column
// carries the interesting keys; wide rows keep pages small without an
// unrealistic block size.
func wideCSV(width int, keys ...[2]int64) string {
	var sb strings.Builder
	for i := 0; i < width; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "c%d", i)
	}
	sb.WriteByte('\n')
	for _, key := range keys {
		for i := 0; i < width; i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			switch i {
			case 0:
				sb.WriteString(strconv.FormatInt(key[0], 10))
			case 1:
				sb.WriteString(strconv.FormatInt(key[1], 10))
			default:
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
