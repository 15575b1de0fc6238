package storage

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/util"
)

// Page is a rectangular block of integers resident in memory. NumRows
// counts the valid rows; anything past it is undefined and never read.
type Page struct {
	Name    string
	NumRows int
	NumCols int

	rows [][]int64
}

// NewPage builds a page over the first nRows of rows.
func NewPage(name string, rows [][]int64, nRows int) *Page {
	cols := 0
	if nRows > 0 {
		cols = len(rows[0])
	}
	return &Page{
		Name:    name,
		NumRows: nRows,
		NumCols: cols,
		rows:    rows,
	}
}

// GetRow returns row i, or nil when i is past the valid rows.
func (p *Page) GetRow(i int) []int64 {
	if i < 0 || i >= p.NumRows {
		return nil
	}
	return p.rows[i]
}

// Rows returns the valid rows of the page.
func (p *Page) Rows() [][]int64 {
	return p.rows[:p.NumRows]
}

// PageName names the block file of a table page.
func PageName(table string, block int) string {
	return fmt.Sprintf("%s_Page%d", table, block)
}

// MatrixPageName names the block file of a matrix sub-block.
func MatrixPageName(matrix string, i, j int) string {
	return fmt.Sprintf("%s_Page%d_%d", matrix, i, j)
}

// encodePage renders a page as text: a header line with the row count,
// column count and a checksum of the body, then one line per row of
// space-separated decimal integers.
func encodePage(rows [][]int64, nRows int) []byte {
	var body bytes.Buffer
	cols := 0
	if nRows > 0 {
		cols = len(rows[0])
	}
	for i := 0; i < nRows; i++ {
		for j, v := range rows[i] {
			if j > 0 {
				body.WriteByte(' ')
			}
			body.Write(strconv.AppendInt(nil, v, 10))
		}
		body.WriteByte('\n')
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d %d\n", nRows, cols, util.HashCode(body.Bytes()))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// decodePage parses the text form produced by encodePage, verifying
// the header checksum before any row is trusted.
func decodePage(name string, data []byte) (*Page, error) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return nil, errors.Errorf("page %s: missing header", name)
	}
	header := string(data[:idx])
	body := data[idx+1:]

	var nRows, nCols int
	var sum uint64
	if _, err := fmt.Sscanf(header, "%d %d %d", &nRows, &nCols, &sum); err != nil {
		return nil, errors.Annotatef(err, "page %s: bad header %q", name, header)
	}
	if util.HashCode(body) != sum {
		return nil, errors.Annotatef(common.ErrPageChecksum, "page %s", name)
	}

	rows := make([][]int64, 0, nRows)
	rest := body
	for i := 0; i < nRows; i++ {
		lineEnd := bytes.IndexByte(rest, '\n')
		if lineEnd < 0 {
			return nil, errors.Errorf("page %s: truncated at row %d", name, i)
		}
		fields := bytes.Fields(rest[:lineEnd])
		if len(fields) != nCols {
			return nil, errors.Errorf("page %s: row %d has %d values, want %d",
				name, i, len(fields), nCols)
		}
		row := make([]int64, nCols)
		for j, f := range fields {
			v, err := strconv.ParseInt(string(f), 10, 64)
			if err != nil {
				return nil, errors.Annotatef(err, "page %s: row %d col %d", name, i, j)
			}
			row[j] = v
		}
		rows = append(rows, row)
		rest = rest[lineEnd+1:]
	}

	return &Page{Name: name, NumRows: nRows, NumCols: nCols, rows: rows}, nil
}
