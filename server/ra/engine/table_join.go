package engine

import (
	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
)

// JoinFrom fills t with the theta-join of left and right on
// left[leftCol] op right[rightCol]. Both inputs MUST already be sorted
// ascending on their join columns; the executor inserts that sort
// step. t's columns are the concatenation of the inputs' columns.
//
// Equality joins run the classic sort-merge with forked cursors
// enumerating the duplicate runs on both sides. Inequality joins pair
// a qualifying row with the remainder of the other side's scan, which
// is exactly the set of qualifying partners once that side is sorted.
func (t *Table) JoinFrom(left, right *Table, leftCol, rightCol int, op common.BinaryOperator) error {
	logger.Trace("Table::JoinFrom " + t.Name)
	switch op {
	case common.Equal, common.LessThan, common.Leq, common.GreaterThan, common.Geq:
	default:
		return errors.Annotatef(common.ErrUnsupportedOp, "JOIN on %s", op)
	}

	t.beginWrite()

	leftCur, err := left.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	rightCur, err := right.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}

	leftRow, err := leftCur.GetNext()
	if err != nil {
		return errors.Trace(err)
	}
	rightRow, err := rightCur.GetNext()
	if err != nil {
		return errors.Trace(err)
	}

	for leftRow != nil && rightRow != nil {
		switch op {
		case common.Equal:
			leftRow, rightRow, err = t.mergeEqual(leftCur, rightCur, leftRow, rightRow, leftCol, rightCol)
		case common.LessThan, common.Leq:
			leftRow, rightRow, err = t.mergeLess(leftCur, rightCur, leftRow, rightRow, leftCol, rightCol, op)
		case common.GreaterThan, common.Geq:
			leftRow, rightRow, err = t.mergeGreater(leftCur, rightCur, leftRow, rightRow, leftCol, rightCol, op)
		}
		if err != nil {
			return errors.Trace(err)
		}
	}

	return errors.Trace(t.endWrite())
}

// appendJoined emits the concatenation of two input rows.
func (t *Table) appendJoined(leftRow, rightRow []int64) error {
	joined := make([]int64, 0, len(leftRow)+len(rightRow))
	joined = append(joined, leftRow...)
	joined = append(joined, rightRow...)
	return errors.Trace(t.appendRow(joined))
}

// mergeEqual advances the classic sort-merge one step: skip the
// smaller side, or emit the cross-product of the two duplicate runs
// via forked cursors and step both primaries.
func (t *Table) mergeEqual(leftCur, rightCur *Cursor, leftRow, rightRow []int64, leftCol, rightCol int) ([]int64, []int64, error) {
	lv, rv := leftRow[leftCol], rightRow[rightCol]
	if lv < rv {
		next, err := leftCur.GetNext()
		return next, rightRow, errors.Trace(err)
	}
	if lv > rv {
		next, err := rightCur.GetNext()
		return leftRow, next, errors.Trace(err)
	}

	if err := t.appendJoined(leftRow, rightRow); err != nil {
		return nil, nil, errors.Trace(err)
	}

	// Pair the remaining left duplicates with the current right row.
	leftFork := leftCur.Clone()
	for {
		dupRow, err := leftFork.GetNext()
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		if dupRow == nil || dupRow[leftCol] != rv {
			break
		}
		if err := t.appendJoined(dupRow, rightRow); err != nil {
			return nil, nil, errors.Trace(err)
		}
	}

	// Pair the current left row with the remaining right duplicates.
	rightFork := rightCur.Clone()
	for {
		dupRow, err := rightFork.GetNext()
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		if dupRow == nil || dupRow[rightCol] != lv {
			break
		}
		if err := t.appendJoined(leftRow, dupRow); err != nil {
			return nil, nil, errors.Trace(err)
		}
	}

	nextLeft, err := leftCur.GetNext()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	nextRight, err := rightCur.GetNext()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return nextLeft, nextRight, nil
}

// mergeLess handles < and <=: once the left row qualifies against the
// current right row, it qualifies against every later right row too.
func (t *Table) mergeLess(leftCur, rightCur *Cursor, leftRow, rightRow []int64, leftCol, rightCol int, op common.BinaryOperator) ([]int64, []int64, error) {
	if op.Eval(leftRow[leftCol], rightRow[rightCol]) {
		if err := t.appendJoined(leftRow, rightRow); err != nil {
			return nil, nil, errors.Trace(err)
		}
		rightFork := rightCur.Clone()
		for {
			restRow, err := rightFork.GetNext()
			if err != nil {
				return nil, nil, errors.Trace(err)
			}
			if restRow == nil {
				break
			}
			if err := t.appendJoined(leftRow, restRow); err != nil {
				return nil, nil, errors.Trace(err)
			}
		}
		nextLeft, err := leftCur.GetNext()
		return nextLeft, rightRow, errors.Trace(err)
	}
	nextRight, err := rightCur.GetNext()
	return leftRow, nextRight, errors.Trace(err)
}

// mergeGreater handles > and >=, the mirror image of mergeLess: a
// qualifying right row pairs with every remaining left row.
func (t *Table) mergeGreater(leftCur, rightCur *Cursor, leftRow, rightRow []int64, leftCol, rightCol int, op common.BinaryOperator) ([]int64, []int64, error) {
	if op.Eval(leftRow[leftCol], rightRow[rightCol]) {
		if err := t.appendJoined(leftRow, rightRow); err != nil {
			return nil, nil, errors.Trace(err)
		}
		leftFork := leftCur.Clone()
		for {
			restRow, err := leftFork.GetNext()
			if err != nil {
				return nil, nil, errors.Trace(err)
			}
			if restRow == nil {
				break
			}
			if err := t.appendJoined(restRow, rightRow); err != nil {
				return nil, nil, errors.Trace(err)
			}
		}
		nextRight, err := rightCur.GetNext()
		return leftRow, nextRight, errors.Trace(err)
	}
	nextLeft, err := leftCur.GetNext()
	return nextLeft, rightRow, errors.Trace(err)
}
