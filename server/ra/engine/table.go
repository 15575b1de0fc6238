package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/ra/storage"
)

// Table owns the metadata of one relation: its column layout, the
// block accounting, the per-column distinct-value statistics and the
// source CSV it came from (or will be exported to). Row data lives in
// page files; the table only ever touches it through the buffer pool.
type Table struct {
	Name            string
	Columns         []string
	ColumnCount     int
	MaxRowsPerBlock int
	SourceFileName  string

	RowCount          int64
	BlockCount        int
	RowsPerBlockCount []int

	// DistinctValuesPerColumnCount[c] is the number of distinct values
	// in column c. The sets used to compute it are transient; only the
	// cardinalities survive.
	DistinctValuesPerColumnCount []int64

	eng          *Engine
	distinctSets []map[int64]struct{}

	// materialization buffer, active between beginWrite and endWrite
	writeBuf [][]int64
}

// NewTable prepares a table whose CSV lives in the permanent data
// directory; Load ingests it.
func NewTable(eng *Engine, name string) *Table {
	logger.Trace("Table::NewTable " + name)
	return &Table{
		Name:           name,
		SourceFileName: eng.SourcePath(name),
		eng:            eng,
	}
}

// NewTempTable prepares an empty temporary table with the given
// columns, the shape every materialized operator result starts from.
// The temp CSV is created holding only the header, so the table can be
// exported or unloaded uniformly.
func NewTempTable(eng *Engine, name string, columns []string) (*Table, error) {
	logger.Trace("Table::NewTempTable " + name)
	t := &Table{
		Name:           name,
		Columns:        append([]string(nil), columns...),
		ColumnCount:    len(columns),
		SourceFileName: eng.TempSourcePath(name),
		eng:            eng,
	}
	if err := t.checkColumnsUnique(); err != nil {
		return nil, errors.Trace(err)
	}
	maxRows, err := eng.MaxRowsPerBlock(t.ColumnCount)
	if err != nil {
		return nil, errors.Trace(err)
	}
	t.MaxRowsPerBlock = maxRows

	f, err := os.Create(t.SourceFileName)
	if err != nil {
		return nil, errors.Annotatef(err, "creating temp source for %s", name)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, strings.Join(t.Columns, ",")); err != nil {
		return nil, errors.Annotatef(err, "writing temp header for %s", name)
	}
	return t, nil
}

func (t *Table) checkColumnsUnique() error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if _, dup := seen[col]; dup {
			return errors.Annotatef(common.ErrDuplicateColumn, "%s", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Load ingests the source CSV: header first, then rows blockified into
// pages while the running statistics accumulate.
func (t *Table) Load() error {
	logger.Trace("Table::Load " + t.Name)
	f, err := os.Open(t.SourceFileName)
	if err != nil {
		return errors.Annotatef(err, "opening source of %s", t.Name)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return errors.Errorf("source of %s is empty", t.Name)
	}
	if err := t.extractColumnNames(scanner.Text()); err != nil {
		return errors.Trace(err)
	}
	if err := t.blockify(scanner); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// extractColumnNames parses the CSV header, rejecting duplicates.
func (t *Table) extractColumnNames(header string) error {
	logger.Trace("Table::extractColumnNames " + t.Name)
	t.Columns = t.Columns[:0]
	for _, col := range strings.Split(header, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			return errors.Annotatef(common.ErrSemantic, "empty column name in %s", t.Name)
		}
		t.Columns = append(t.Columns, col)
	}
	if err := t.checkColumnsUnique(); err != nil {
		return errors.Trace(err)
	}
	t.ColumnCount = len(t.Columns)
	maxRows, err := t.eng.MaxRowsPerBlock(t.ColumnCount)
	if err != nil {
		return errors.Trace(err)
	}
	t.MaxRowsPerBlock = maxRows
	return nil
}

// blockify streams the data rows into fixed-capacity pages.
func (t *Table) blockify(scanner *bufio.Scanner) error {
	logger.Trace("Table::blockify " + t.Name)
	t.initStatistics()
	t.beginWrite()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := parseRow(line, t.ColumnCount)
		if err != nil {
			return errors.Annotatef(err, "table %s", t.Name)
		}
		if err := t.appendRow(row); err != nil {
			return errors.Trace(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Annotatef(err, "reading source of %s", t.Name)
	}
	if err := t.endWrite(); err != nil {
		return errors.Trace(err)
	}
	if t.RowCount == 0 {
		return errors.Annotatef(common.ErrEmptyTable, "%s", t.Name)
	}
	return nil
}

func parseRow(line string, columnCount int) ([]int64, error) {
	fields := strings.Split(line, ",")
	if len(fields) != columnCount {
		return nil, errors.Errorf("row has %d values, want %d", len(fields), columnCount)
	}
	row := make([]int64, columnCount)
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, errors.Annotatef(err, "column %d", i)
		}
		row[i] = v
	}
	return row, nil
}

// initStatistics resets the statistics accumulators.
func (t *Table) initStatistics() {
	t.distinctSets = make([]map[int64]struct{}, t.ColumnCount)
	for i := range t.distinctSets {
		t.distinctSets[i] = make(map[int64]struct{})
	}
	t.DistinctValuesPerColumnCount = make([]int64, t.ColumnCount)
	t.RowCount = 0
}

// updateStatistics folds one row into the running row count and the
// per-column distinct counts.
func (t *Table) updateStatistics(row []int64) {
	t.RowCount++
	for i, v := range row {
		if _, ok := t.distinctSets[i][v]; !ok {
			t.distinctSets[i][v] = struct{}{}
			t.DistinctValuesPerColumnCount[i]++
		}
	}
}

// discardStatisticsSets keeps the cardinalities and releases the
// working sets, bounding resident memory after a load or materialize.
func (t *Table) discardStatisticsSets() {
	t.distinctSets = nil
}

// beginWrite opens the materialization buffer. Rows appended through
// appendRow flush into pages of MaxRowsPerBlock rows.
func (t *Table) beginWrite() {
	if t.distinctSets == nil {
		t.initStatistics()
	}
	t.writeBuf = make([][]int64, 0, t.MaxRowsPerBlock)
}

// appendRow buffers one result row, flushing a full page.
func (t *Table) appendRow(row []int64) error {
	t.writeBuf = append(t.writeBuf, row)
	t.updateStatistics(row)
	if len(t.writeBuf) == t.MaxRowsPerBlock {
		return errors.Trace(t.flushWriteBuf())
	}
	return nil
}

func (t *Table) flushWriteBuf() error {
	if len(t.writeBuf) == 0 {
		return nil
	}
	name := storage.PageName(t.Name, t.BlockCount)
	if err := t.eng.pool.WritePage(name, t.writeBuf, len(t.writeBuf)); err != nil {
		return errors.Trace(err)
	}
	t.BlockCount++
	t.RowsPerBlockCount = append(t.RowsPerBlockCount, len(t.writeBuf))
	t.writeBuf = t.writeBuf[:0]
	return nil
}

// endWrite flushes the final partial page and seals the statistics.
func (t *Table) endWrite() error {
	if err := t.flushWriteBuf(); err != nil {
		return errors.Trace(err)
	}
	t.writeBuf = nil
	t.discardStatisticsSets()
	return nil
}

// IsColumn reports whether columnName belongs to this table.
func (t *Table) IsColumn(columnName string) bool {
	for _, col := range t.Columns {
		if col == columnName {
			return true
		}
	}
	return false
}

// GetColumnIndex resolves a column name to its position.
func (t *Table) GetColumnIndex(columnName string) (int, error) {
	for i, col := range t.Columns {
		if col == columnName {
			return i, nil
		}
	}
	return 0, errors.Annotatef(common.ErrColumnNotFound, "%s.%s", t.Name, columnName)
}

// RenameColumn renames one column; existence checks are the caller's.
func (t *Table) RenameColumn(from, to string) {
	logger.Trace("Table::RenameColumn " + t.Name)
	for i, col := range t.Columns {
		if col == from {
			t.Columns[i] = to
			return
		}
	}
}

// GetCursor opens a cursor on the table's first page.
func (t *Table) GetCursor() (*Cursor, error) {
	logger.Trace("Table::GetCursor " + t.Name)
	return newCursor(t.eng, t, 0)
}

// cursorAt opens a cursor on an arbitrary page, used by the external
// sort to address runs.
func (t *Table) cursorAt(block int) (*Cursor, error) {
	return newCursor(t.eng, t, block)
}

func (t *Table) blockTotal() int {
	return t.BlockCount
}

func (t *Table) blockPageName(idx int) string {
	return storage.PageName(t.Name, idx)
}

// Print writes the header and the first PRINT_COUNT rows to w.
func (t *Table) Print(w io.Writer) error {
	logger.Trace("Table::Print " + t.Name)
	count := int64(t.eng.cfg.PrintCount)
	if t.RowCount < count {
		count = t.RowCount
	}

	fmt.Fprintln(w, strings.Join(t.Columns, ", "))
	cursor, err := t.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	for i := int64(0); i < count; i++ {
		row, err := cursor.GetNext()
		if err != nil {
			return errors.Trace(err)
		}
		if row == nil {
			break
		}
		writeRow(w, row)
	}
	fmt.Fprintf(w, "\nRow Count: %d\n", t.RowCount)
	return nil
}

func writeRow(w io.Writer, row []int64) {
	for i, v := range row {
		if i > 0 {
			io.WriteString(w, ", ")
		}
		io.WriteString(w, strconv.FormatInt(v, 10))
	}
	io.WriteString(w, "\n")
}

// IsPermanent reports whether the table's source lives in the user
// data directory.
func (t *Table) IsPermanent() bool {
	return t.SourceFileName == t.eng.SourcePath(t.Name)
}

// MakePermanent streams every row to the permanent CSV path and makes
// it the table's source, the EXPORT operation.
func (t *Table) MakePermanent() error {
	logger.Trace("Table::MakePermanent " + t.Name)
	if !t.IsPermanent() {
		if err := t.eng.pool.Store().DeleteFile(t.SourceFileName); err != nil {
			return errors.Trace(err)
		}
	}
	newSource := t.eng.SourcePath(t.Name)
	f, err := os.Create(newSource)
	if err != nil {
		return errors.Annotatef(err, "exporting %s", t.Name)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(t.Columns, ","))
	cursor, err := t.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	for {
		row, err := cursor.GetNext()
		if err != nil {
			return errors.Trace(err)
		}
		if row == nil {
			break
		}
		for i, v := range row {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(strconv.FormatInt(v, 10))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return errors.Annotatef(err, "exporting %s", t.Name)
	}
	t.SourceFileName = newSource
	return nil
}

// Unload removes every page file of the table and, for a temporary
// table, its source CSV. Resident pages are purged with the files.
func (t *Table) Unload() error {
	logger.Trace("Table::Unload " + t.Name)
	for i := 0; i < t.BlockCount; i++ {
		if err := t.eng.pool.DeletePage(storage.PageName(t.Name, i)); err != nil {
			return errors.Trace(err)
		}
	}
	if !t.IsPermanent() {
		if err := t.eng.pool.Store().DeleteFile(t.SourceFileName); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// CopyAs materializes a temporary copy of the table under newName.
func (t *Table) CopyAs(newName string) (*Table, error) {
	logger.Trace("Table::CopyAs " + t.Name + " -> " + newName)
	out, err := NewTempTable(t.eng, newName, t.Columns)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out.beginWrite()
	cursor, err := t.GetCursor()
	if err != nil {
		return nil, errors.Trace(err)
	}
	for {
		row, err := cursor.GetNext()
		if err != nil {
			return nil, errors.Trace(err)
		}
		if row == nil {
			break
		}
		if err := out.appendRow(row); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := out.endWrite(); err != nil {
		return nil, errors.Trace(err)
	}
	return out, nil
}
