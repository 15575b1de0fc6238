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

// Matrix is a square integer matrix stored as a 2D tiling of square
// sub-blocks, each one a page. Block (i,j) holds the rows i*B..i*B+B-1
// restricted to the columns j*B..j*B+B-1; edge blocks are smaller.
type Matrix struct {
	Name           string
	Order          int
	BlockSide      int
	GridDim        int
	SourceFileName string

	eng *Engine
}

// NewMatrix prepares a matrix whose CSV lives in the permanent data
// directory; Load ingests it.
func NewMatrix(eng *Engine, name string) *Matrix {
	logger.Trace("Matrix::NewMatrix " + name)
	return &Matrix{
		Name:           name,
		SourceFileName: eng.SourcePath(name),
		eng:            eng,
	}
}

// newTempMatrix prepares an empty temporary matrix of the given order,
// the shape COMPUTE materializes into.
func newTempMatrix(eng *Engine, name string, order int) *Matrix {
	m := &Matrix{
		Name:           name,
		SourceFileName: eng.TempSourcePath(name),
		eng:            eng,
	}
	m.setOrder(order)
	return m
}

func (m *Matrix) setOrder(order int) {
	m.Order = order
	m.BlockSide = m.eng.MatrixBlockSide()
	m.GridDim = (order + m.BlockSide - 1) / m.BlockSide
}

// blockSpan is the side length of the blocks in grid row (or column) i.
func (m *Matrix) blockSpan(i int) int {
	span := m.Order - i*m.BlockSide
	if span > m.BlockSide {
		span = m.BlockSide
	}
	return span
}

func (m *Matrix) blockTotal() int {
	return m.GridDim * m.GridDim
}

func (m *Matrix) blockPageName(idx int) string {
	return storage.MatrixPageName(m.Name, idx/m.GridDim, idx%m.GridDim)
}

func (m *Matrix) getBlock(i, j int) (*storage.Page, error) {
	return m.eng.pool.GetPage(storage.MatrixPageName(m.Name, i, j))
}

func (m *Matrix) writeBlock(i, j int, rows [][]int64) error {
	name := storage.MatrixPageName(m.Name, i, j)
	return errors.Trace(m.eng.pool.WritePage(name, rows, len(rows)))
}

// Load ingests the source CSV: N comma-separated integers per line, N
// lines, no header. Rows are tiled into sub-blocks one stripe of B
// lines at a time.
func (m *Matrix) Load() error {
	logger.Trace("Matrix::Load " + m.Name)
	f, err := os.Open(m.SourceFileName)
	if err != nil {
		return errors.Annotatef(err, "opening source of %s", m.Name)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return errors.Errorf("source of %s is empty", m.Name)
	}
	firstRow, err := parseRowAnyWidth(scanner.Text())
	if err != nil {
		return errors.Annotatef(err, "matrix %s", m.Name)
	}
	m.setOrder(len(firstRow))

	stripe := make([][][]int64, m.GridDim)
	stripeRows := 0
	stripeIdx := 0
	lineCount := 0

	flushStripe := func() error {
		for j := 0; j < m.GridDim; j++ {
			if err := m.writeBlock(stripeIdx, j, stripe[j]); err != nil {
				return errors.Trace(err)
			}
			stripe[j] = nil
		}
		stripeIdx++
		stripeRows = 0
		return nil
	}

	addRow := func(row []int64) error {
		if len(row) != m.Order {
			return errors.Annotatef(common.ErrNotSquareMatrix,
				"%s: line %d has %d values, want %d", m.Name, lineCount+1, len(row), m.Order)
		}
		for j := 0; j < m.GridDim; j++ {
			lo := j * m.BlockSide
			hi := lo + m.blockSpan(j)
			stripe[j] = append(stripe[j], row[lo:hi])
		}
		lineCount++
		stripeRows++
		if stripeRows == m.BlockSide {
			return errors.Trace(flushStripe())
		}
		return nil
	}

	if err := addRow(firstRow); err != nil {
		return errors.Trace(err)
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := parseRowAnyWidth(line)
		if err != nil {
			return errors.Annotatef(err, "matrix %s", m.Name)
		}
		if err := addRow(row); err != nil {
			return errors.Trace(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Annotatef(err, "reading source of %s", m.Name)
	}
	if stripeRows > 0 {
		if err := flushStripe(); err != nil {
			return errors.Trace(err)
		}
	}
	if lineCount != m.Order {
		return errors.Annotatef(common.ErrNotSquareMatrix,
			"%s: %d lines of %d values", m.Name, lineCount, m.Order)
	}
	return nil
}

func parseRowAnyWidth(line string) ([]int64, error) {
	fields := strings.Split(line, ",")
	row := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, errors.Annotatef(err, "column %d", i)
		}
		row[i] = v
	}
	return row, nil
}

// transposedRows builds the transpose of a block in fresh memory.
func transposedRows(rows [][]int64) [][]int64 {
	if len(rows) == 0 {
		return nil
	}
	nCols := len(rows[0])
	out := make([][]int64, nCols)
	for c := 0; c < nCols; c++ {
		out[c] = make([]int64, len(rows))
		for r := range rows {
			out[c][r] = rows[r][c]
		}
	}
	return out
}

// Transpose swaps sub-blocks (i,j) and (j,i), transposing each, with
// diagonal blocks transposed in place. At most two blocks are worked
// on at a time.
func (m *Matrix) Transpose() error {
	logger.Trace("Matrix::Transpose " + m.Name)
	for i := 0; i < m.GridDim; i++ {
		for j := i; j < m.GridDim; j++ {
			if i == j {
				page, err := m.getBlock(i, i)
				if err != nil {
					return errors.Trace(err)
				}
				if err := m.writeBlock(i, i, transposedRows(page.Rows())); err != nil {
					return errors.Trace(err)
				}
				continue
			}
			upper, err := m.getBlock(i, j)
			if err != nil {
				return errors.Trace(err)
			}
			lower, err := m.getBlock(j, i)
			if err != nil {
				return errors.Trace(err)
			}
			if err := m.writeBlock(j, i, transposedRows(upper.Rows())); err != nil {
				return errors.Trace(err)
			}
			if err := m.writeBlock(i, j, transposedRows(lower.Rows())); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return nil
}

// CheckSymmetry reports whether the matrix equals its transpose,
// short-circuiting on the first mismatching block pair. Only two
// blocks are resident at a time.
func (m *Matrix) CheckSymmetry() (bool, error) {
	logger.Trace("Matrix::CheckSymmetry " + m.Name)
	for i := 0; i < m.GridDim; i++ {
		for j := i; j < m.GridDim; j++ {
			upper, err := m.getBlock(i, j)
			if err != nil {
				return false, errors.Trace(err)
			}
			lower, err := m.getBlock(j, i)
			if err != nil {
				return false, errors.Trace(err)
			}
			upperRows := upper.Rows()
			lowerRows := lower.Rows()
			for r := range upperRows {
				for c, v := range upperRows[r] {
					if v != lowerRows[c][r] {
						return false, nil
					}
				}
			}
		}
	}
	return true, nil
}

// Compute materializes resultName = m - mᵀ as a new temporary matrix.
func (m *Matrix) Compute(resultName string) (*Matrix, error) {
	logger.Trace("Matrix::Compute " + m.Name)
	result := newTempMatrix(m.eng, resultName, m.Order)
	for i := 0; i < m.GridDim; i++ {
		for j := i; j < m.GridDim; j++ {
			upper, err := m.getBlock(i, j)
			if err != nil {
				return nil, errors.Trace(err)
			}
			lower, err := m.getBlock(j, i)
			if err != nil {
				return nil, errors.Trace(err)
			}
			upperOut := subtractTransposed(upper.Rows(), lower.Rows())
			if err := result.writeBlock(i, j, upperOut); err != nil {
				return nil, errors.Trace(err)
			}
			if i == j {
				continue
			}
			lowerOut := subtractTransposed(lower.Rows(), upper.Rows())
			if err := result.writeBlock(j, i, lowerOut); err != nil {
				return nil, errors.Trace(err)
			}
		}
	}
	return result, nil
}

// subtractTransposed computes a - bᵀ for block-shaped operands.
func subtractTransposed(a, b [][]int64) [][]int64 {
	out := make([][]int64, len(a))
	for r := range a {
		out[r] = make([]int64, len(a[r]))
		for c := range a[r] {
			out[r][c] = a[r][c] - b[c][r]
		}
	}
	return out
}

// valueAt reads one element through the buffer pool.
func (m *Matrix) valueAt(r, c int) (int64, error) {
	page, err := m.getBlock(r/m.BlockSide, c/m.BlockSide)
	if err != nil {
		return 0, errors.Trace(err)
	}
	row := page.GetRow(r % m.BlockSide)
	if row == nil {
		return 0, errors.Errorf("matrix %s: missing row %d", m.Name, r)
	}
	return row[c%m.BlockSide], nil
}

// Print writes the top-left corner of the matrix, at most PRINT_COUNT
// rows and columns, to w.
func (m *Matrix) Print(w io.Writer) error {
	logger.Trace("Matrix::Print " + m.Name)
	limit := m.eng.cfg.PrintCount
	if m.Order < limit {
		limit = m.Order
	}
	for r := 0; r < limit; r++ {
		for c := 0; c < limit; c++ {
			v, err := m.valueAt(r, c)
			if err != nil {
				return errors.Trace(err)
			}
			if c > 0 {
				io.WriteString(w, ", ")
			}
			io.WriteString(w, strconv.FormatInt(v, 10))
		}
		io.WriteString(w, "\n")
	}
	fmt.Fprintf(w, "\nOrder: %d\n", m.Order)
	return nil
}

// IsPermanent reports whether the matrix's source lives in the user
// data directory.
func (m *Matrix) IsPermanent() bool {
	return m.SourceFileName == m.eng.SourcePath(m.Name)
}

// MakePermanent streams the full matrix to the permanent CSV path and
// makes it the matrix's source, the EXPORT MATRIX operation.
func (m *Matrix) MakePermanent() error {
	logger.Trace("Matrix::MakePermanent " + m.Name)
	if !m.IsPermanent() {
		if err := m.eng.pool.Store().DeleteFile(m.SourceFileName); err != nil {
			return errors.Trace(err)
		}
	}
	newSource := m.eng.SourcePath(m.Name)
	f, err := os.Create(newSource)
	if err != nil {
		return errors.Annotatef(err, "exporting %s", m.Name)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for r := 0; r < m.Order; r++ {
		for c := 0; c < m.Order; c++ {
			v, err := m.valueAt(r, c)
			if err != nil {
				return errors.Trace(err)
			}
			if c > 0 {
				w.WriteByte(',')
			}
			w.WriteString(strconv.FormatInt(v, 10))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return errors.Annotatef(err, "exporting %s", m.Name)
	}
	m.SourceFileName = newSource
	return nil
}

// Unload removes every block file of the matrix and, for a temporary
// matrix, its source CSV.
func (m *Matrix) Unload() error {
	logger.Trace("Matrix::Unload " + m.Name)
	for i := 0; i < m.GridDim; i++ {
		for j := 0; j < m.GridDim; j++ {
			if err := m.eng.pool.DeletePage(storage.MatrixPageName(m.Name, i, j)); err != nil {
				return errors.Trace(err)
			}
		}
	}
	if !m.IsPermanent() {
		if err := m.eng.pool.Store().DeleteFile(m.SourceFileName); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Rename moves the matrix's block files and source under newName.
func (m *Matrix) Rename(newName string) error {
	logger.Trace("Matrix::Rename " + m.Name + " -> " + newName)
	permanent := m.IsPermanent()
	for i := 0; i < m.GridDim; i++ {
		for j := 0; j < m.GridDim; j++ {
			oldPage := storage.MatrixPageName(m.Name, i, j)
			newPage := storage.MatrixPageName(newName, i, j)
			if err := m.eng.pool.RenamePage(oldPage, newPage); err != nil {
				return errors.Trace(err)
			}
		}
	}
	newSource := m.eng.TempSourcePath(newName)
	if permanent {
		newSource = m.eng.SourcePath(newName)
	}
	if err := os.Rename(m.SourceFileName, newSource); err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "renaming source of %s", m.Name)
	}
	m.Name = newName
	m.SourceFileName = newSource
	return nil
}
