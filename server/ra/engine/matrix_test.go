package engine

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matrixCSV renders values(r, c) as an order x order CSV.
func matrixCSV(order int, values func(r, c int) int64) string {
	var sb strings.Builder
	for r := 0; r < order; r++ {
		for c := 0; c < order; c++ {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(values(r, c), 10))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func loadMatrix(t *testing.T, eng *Engine, name, content string) *Matrix {
	t.Helper()
	require.NoError(t, os.WriteFile(eng.SourcePath(name), []byte(content), 0644))
	m := NewMatrix(eng, name)
	require.NoError(t, m.Load())
	eng.Matrices().Insert(m)
	return m
}

func TestMatrixLoadSingleBlock(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", "1,2\n3,4\n")

	assert.Equal(t, 2, m.Order)
	assert.Equal(t, 1, m.GridDim)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			v, err := m.valueAt(r, c)
			require.NoError(t, err)
			assert.Equal(t, int64(r*2+c+1), v)
		}
	}
}

func TestMatrixLoadMultiBlock(t *testing.T) {
	eng := newTestEngine(t)
	// 1 KB blocks give a block side of 15, so order 20 tiles 2x2.
	require.Equal(t, 15, eng.MatrixBlockSide())
	m := loadMatrix(t, eng, "M", matrixCSV(20, func(r, c int) int64 {
		return int64(r*20 + c)
	}))

	assert.Equal(t, 20, m.Order)
	assert.Equal(t, 2, m.GridDim)
	for _, pos := range [][2]int{{0, 0}, {0, 19}, {14, 14}, {15, 15}, {19, 0}, {19, 19}, {3, 17}, {17, 3}} {
		v, err := m.valueAt(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, int64(pos[0]*20+pos[1]), v)
	}
}

func TestMatrixLoadRejectsNonSquare(t *testing.T) {
	eng := newTestEngine(t)
	require.NoError(t, os.WriteFile(eng.SourcePath("bad"), []byte("1,2,3\n4,5,6\n"), 0644))
	m := NewMatrix(eng, "bad")
	require.Error(t, m.Load())

	require.NoError(t, os.WriteFile(eng.SourcePath("bad2"), []byte("1,2\n3,4,5\n"), 0644))
	m2 := NewMatrix(eng, "bad2")
	require.Error(t, m2.Load())
}

func TestMatrixCheckSymmetry(t *testing.T) {
	eng := newTestEngine(t)

	sym := loadMatrix(t, eng, "S", "1,2\n2,1\n")
	ok, err := sym.CheckSymmetry()
	require.NoError(t, err)
	assert.True(t, ok)

	asym := loadMatrix(t, eng, "A", "1,2\n3,1\n")
	ok, err = asym.CheckSymmetry()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatrixCheckSymmetryMultiBlock(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "S", matrixCSV(20, func(r, c int) int64 {
		return int64((r + 1) * (c + 1))
	}))
	ok, err := m.CheckSymmetry()
	require.NoError(t, err)
	assert.True(t, ok)

	// One off-diagonal element in a cross block breaks it.
	a := loadMatrix(t, eng, "A", matrixCSV(20, func(r, c int) int64 {
		if r == 2 && c == 17 {
			return 999
		}
		return int64((r + 1) * (c + 1))
	}))
	ok, err = a.CheckSymmetry()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatrixTranspose(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", matrixCSV(20, func(r, c int) int64 {
		return int64(r*20 + c)
	}))

	require.NoError(t, m.Transpose())
	for _, pos := range [][2]int{{0, 1}, {1, 0}, {14, 15}, {15, 14}, {19, 2}, {7, 7}} {
		v, err := m.valueAt(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, int64(pos[1]*20+pos[0]), v, "element (%d,%d)", pos[0], pos[1])
	}

	// Transposing twice restores the original.
	require.NoError(t, m.Transpose())
	for _, pos := range [][2]int{{0, 1}, {19, 2}, {14, 15}} {
		v, err := m.valueAt(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, int64(pos[0]*20+pos[1]), v)
	}
}

func TestMatrixCompute(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", matrixCSV(20, func(r, c int) int64 {
		return int64(r*20 + c)
	}))

	result, err := m.Compute("M_RESULT")
	require.NoError(t, err)
	eng.Matrices().Insert(result)

	for _, pos := range [][2]int{{0, 0}, {1, 2}, {2, 1}, {14, 16}, {16, 14}, {19, 19}} {
		r, c := pos[0], pos[1]
		v, err := result.valueAt(r, c)
		require.NoError(t, err)
		want := int64(r*20+c) - int64(c*20+r)
		assert.Equal(t, want, v, "element (%d,%d)", r, c)
	}
}

func TestMatrixExportReload(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", matrixCSV(20, func(r, c int) int64 {
		return int64(r*20 - 3*c)
	}))

	result, err := m.Compute("M_RESULT")
	require.NoError(t, err)
	require.NoError(t, result.MakePermanent())
	assert.True(t, result.IsPermanent())

	reloaded := NewMatrix(eng, "M_RESULT")
	require.NoError(t, reloaded.Load())
	for _, pos := range [][2]int{{0, 5}, {16, 2}, {9, 9}} {
		want, err := result.valueAt(pos[0], pos[1])
		require.NoError(t, err)
		got, err := reloaded.valueAt(pos[0], pos[1])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestMatrixPrint(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", "1,2\n3,4\n")

	var out strings.Builder
	require.NoError(t, m.Print(&out))
	assert.Contains(t, out.String(), "1, 2")
	assert.Contains(t, out.String(), "3, 4")
	assert.Contains(t, out.String(), "Order: 2")
}

func TestMatrixRename(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", "1,2\n3,4\n")
	eng.Matrices().Remove("M")

	require.NoError(t, m.Rename("N"))
	eng.Matrices().Insert(m)
	assert.Equal(t, "N", m.Name)
	v, err := m.valueAt(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, eng.SourcePath("N"), m.SourceFileName)
}

func TestMatrixUnload(t *testing.T) {
	eng := newTestEngine(t)
	m := loadMatrix(t, eng, "M", "1,2\n3,4\n")

	require.NoError(t, m.Unload())
	_, err := eng.Pool().Store().ReadPage("M_Page0_0")
	require.Error(t, err)
}
