package engine

import (
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
)

// aggState accumulates one aggregate over the rows of a group. MIN and
// MAX initialize from the first observed value instead of a sentinel,
// so the whole integer domain is usable.
type aggState struct {
	sum   int64
	count int64
	min   int64
	max   int64
	seen  bool
}

func (s *aggState) update(v int64) {
	s.sum += v
	s.count++
	if !s.seen {
		s.min, s.max = v, v
		s.seen = true
		return
	}
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
}

// finalize produces the aggregate's value. AVG divides exactly and
// truncates toward zero, matching integer division on the stored
// domain.
func (s *aggState) finalize(agg common.Aggregate) int64 {
	switch agg {
	case common.AggMin:
		return s.min
	case common.AggMax:
		return s.max
	case common.AggSum:
		return s.sum
	case common.AggCount:
		return s.count
	case common.AggAvg:
		if s.count == 0 {
			return 0
		}
		return decimal.NewFromInt(s.sum).
			Div(decimal.NewFromInt(s.count)).
			IntPart()
	default:
		return 0
	}
}

// GroupSpec carries the parameters of a grouped aggregation.
type GroupSpec struct {
	GroupCol  int
	HavingAgg common.Aggregate
	HavingCol int
	HavingOp  common.BinaryOperator
	HavingVal int64
	ReturnAgg common.Aggregate
	ReturnCol int
}

// GroupFrom fills t, a two-column table, with one row per group of src
// that passes the HAVING predicate. src MUST already be sorted
// ascending on the grouping column; the executor inserts that sort
// step. Group boundaries are detected by key change on the sequential
// scan.
func (t *Table) GroupFrom(src *Table, spec GroupSpec) error {
	logger.Trace("Table::GroupFrom " + t.Name)
	t.beginWrite()

	cursor, err := src.GetCursor()
	if err != nil {
		return errors.Trace(err)
	}
	row, err := cursor.GetNext()
	if err != nil {
		return errors.Trace(err)
	}
	if row == nil {
		return errors.Trace(t.endWrite())
	}

	groupKey := row[spec.GroupCol]
	var having, result aggState

	emit := func() error {
		if !spec.HavingOp.Eval(having.finalize(spec.HavingAgg), spec.HavingVal) {
			return nil
		}
		return errors.Trace(t.appendRow([]int64{groupKey, result.finalize(spec.ReturnAgg)}))
	}

	for row != nil {
		if row[spec.GroupCol] != groupKey {
			if err := emit(); err != nil {
				return errors.Trace(err)
			}
			groupKey = row[spec.GroupCol]
			having = aggState{}
			result = aggState{}
		}
		having.update(row[spec.HavingCol])
		result.update(row[spec.ReturnCol])

		row, err = cursor.GetNext()
		if err != nil {
			return errors.Trace(err)
		}
	}
	if err := emit(); err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(t.endWrite())
}
