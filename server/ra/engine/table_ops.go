package engine

import (
	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
)

// ProjectFrom fills t with the named column subset of src, one
// streaming scan.
func (t *Table) ProjectFrom(src *Table, colIndices []int) error {
	logger.Trace("Table::ProjectFrom " + t.Name)
	t.beginWrite()

	cursor, err := src.GetCursor()
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
		projected := make([]int64, len(colIndices))
		for i, c := range colIndices {
			projected[i] = row[c]
		}
		if err := t.appendRow(projected); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(t.endWrite())
}

// SelectSpec is a SELECT condition: column against literal, or column
// against column.
type SelectSpec struct {
	FirstCol  int
	Op        common.BinaryOperator
	SecondCol int
	Literal   int64
	ByColumn  bool
}

// SelectFrom fills t with the rows of src satisfying the condition,
// one streaming scan.
func (t *Table) SelectFrom(src *Table, spec SelectSpec) error {
	logger.Trace("Table::SelectFrom " + t.Name)
	t.beginWrite()

	cursor, err := src.GetCursor()
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
		rhs := spec.Literal
		if spec.ByColumn {
			rhs = row[spec.SecondCol]
		}
		if spec.Op.Eval(row[spec.FirstCol], rhs) {
			if err := t.appendRow(row); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return errors.Trace(t.endWrite())
}

// CrossFrom fills t with the cross product of left and right by a
// nested-loop scan; the inner side is rescanned per outer row through
// the buffer pool.
func (t *Table) CrossFrom(left, right *Table) error {
	logger.Trace("Table::CrossFrom " + t.Name)
	t.beginWrite()

	outer, err := left.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	for {
		leftRow, err := outer.GetNext()
		if err != nil {
			return errors.Trace(err)
		}
		if leftRow == nil {
			break
		}
		inner, err := right.GetCursor()
		if err != nil {
			return errors.Trace(err)
		}
		for {
			rightRow, err := inner.GetNext()
			if err != nil {
				return errors.Trace(err)
			}
			if rightRow == nil {
				break
			}
			if err := t.appendJoined(leftRow, rightRow); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return errors.Trace(t.endWrite())
}

// DistinctFrom fills t with src minus adjacent duplicate rows, one
// streaming scan. Full duplicate elimination requires src to be sorted
// first; the executor does not sort it, so a prior SORT is the
// caller's step.
func (t *Table) DistinctFrom(src *Table) error {
	logger.Trace("Table::DistinctFrom " + t.Name)
	t.beginWrite()

	cursor, err := src.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	var prev []int64
	for {
		row, err := cursor.GetNext()
		if err != nil {
			return errors.Trace(err)
		}
		if row == nil {
			break
		}
		if prev != nil && rowsEqual(prev, row) {
			continue
		}
		if err := t.appendRow(row); err != nil {
			return errors.Trace(err)
		}
		prev = row
	}
	return errors.Trace(t.endWrite())
}

func rowsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
