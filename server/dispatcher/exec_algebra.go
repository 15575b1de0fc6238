package dispatcher

import (
	"fmt"
	"io"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/parser"
	"github.com/xraengine/xra-server/server/ra/engine"
)

func (d *QueryDispatcher) execProjection(pq *parser.ParsedQuery, w io.Writer) error {
	src, err := d.requireTable(pq.ProjectionName)
	if err != nil {
		return errors.Trace(err)
	}
	indices := make([]int, len(pq.ProjectionColumns))
	for i, col := range pq.ProjectionColumns {
		idx, err := src.GetColumnIndex(col)
		if err != nil {
			return errors.Trace(err)
		}
		indices[i] = idx
	}
	result, err := d.materialize(pq.ProjectionResultName, pq.ProjectionColumns, func(t *engine.Table) error {
		return t.ProjectFrom(src, indices)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

func (d *QueryDispatcher) execSelection(pq *parser.ParsedQuery, w io.Writer) error {
	src, err := d.requireTable(pq.SelectionName)
	if err != nil {
		return errors.Trace(err)
	}
	spec := engine.SelectSpec{
		Op:       pq.SelectionOp,
		Literal:  pq.SelectionIntLiteral,
		ByColumn: pq.SelectionByColumn,
	}
	if spec.FirstCol, err = src.GetColumnIndex(pq.SelectionFirstColumn); err != nil {
		return errors.Trace(err)
	}
	if pq.SelectionByColumn {
		if spec.SecondCol, err = src.GetColumnIndex(pq.SelectionSecondColumn); err != nil {
			return errors.Trace(err)
		}
	}
	result, err := d.materialize(pq.SelectionResultName, src.Columns, func(t *engine.Table) error {
		return t.SelectFrom(src, spec)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

// concatColumns joins the column lists of a binary operator's inputs,
// qualifying names that collide. When the two inputs are the same
// relation, a positional suffix keeps the qualifiers distinct.
func concatColumns(left, right *engine.Table) []string {
	leftName, rightName := left.Name, right.Name
	if leftName == rightName {
		leftName, rightName = leftName+"1", rightName+"2"
	}
	seen := make(map[string]int, len(left.Columns)+len(right.Columns))
	for _, col := range left.Columns {
		seen[col]++
	}
	for _, col := range right.Columns {
		seen[col]++
	}

	out := make([]string, 0, len(left.Columns)+len(right.Columns))
	for _, col := range left.Columns {
		if seen[col] > 1 {
			col = leftName + "_" + col
		}
		out = append(out, col)
	}
	for _, col := range right.Columns {
		if seen[col] > 1 {
			col = rightName + "_" + col
		}
		out = append(out, col)
	}
	return out
}

func (d *QueryDispatcher) execCross(pq *parser.ParsedQuery, w io.Writer) error {
	left, err := d.requireTable(pq.CrossFirstName)
	if err != nil {
		return errors.Trace(err)
	}
	right, err := d.requireTable(pq.CrossSecondName)
	if err != nil {
		return errors.Trace(err)
	}
	result, err := d.materialize(pq.CrossResultName, concatColumns(left, right), func(t *engine.Table) error {
		return t.CrossFrom(left, right)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

func (d *QueryDispatcher) execDistinct(pq *parser.ParsedQuery, w io.Writer) error {
	src, err := d.requireTable(pq.DistinctName)
	if err != nil {
		return errors.Trace(err)
	}
	result, err := d.materialize(pq.DistinctResultName, src.Columns, func(t *engine.Table) error {
		return t.DistinctFrom(src)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

func (d *QueryDispatcher) execSort(pq *parser.ParsedQuery, w io.Writer) error {
	t, err := d.requireTable(pq.SortName)
	if err != nil {
		return errors.Trace(err)
	}
	keys := make([]engine.SortKey, len(pq.SortColumns))
	for i, col := range pq.SortColumns {
		idx, err := t.GetColumnIndex(col)
		if err != nil {
			return errors.Trace(err)
		}
		keys[i] = engine.SortKey{ColumnIndex: idx, Order: pq.SortDirections[i]}
	}
	if err := t.Sort(keys); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Sorted Table %s\n", t.Name)
	return nil
}

func (d *QueryDispatcher) execOrder(pq *parser.ParsedQuery, w io.Writer) error {
	src, err := d.requireTable(pq.OrderName)
	if err != nil {
		return errors.Trace(err)
	}
	colIdx, err := src.GetColumnIndex(pq.OrderColumnName)
	if err != nil {
		return errors.Trace(err)
	}
	if d.eng.Tables().Has(pq.OrderResultName) {
		return errors.Annotatef(common.ErrTableExists, "%s", pq.OrderResultName)
	}
	result, err := src.CopyAs(pq.OrderResultName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := result.Sort([]engine.SortKey{{ColumnIndex: colIdx, Order: pq.OrderDirection}}); err != nil {
		if unloadErr := result.Unload(); unloadErr != nil {
			logger.Errorf("discarding partial table %s: %v", result.Name, unloadErr)
		}
		return errors.Trace(err)
	}
	d.eng.Tables().Insert(result)
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

// sortedTempCopy materializes a copy of src sorted ascending on one
// column, the explicit sort step in front of the order-dependent
// operators.
func (d *QueryDispatcher) sortedTempCopy(src *engine.Table, tempName string, colIdx int) (*engine.Table, error) {
	cp, err := src.CopyAs(tempName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := cp.Sort([]engine.SortKey{{ColumnIndex: colIdx, Order: common.Asc}}); err != nil {
		if unloadErr := cp.Unload(); unloadErr != nil {
			logger.Errorf("discarding temp table %s: %v", tempName, unloadErr)
		}
		return nil, errors.Trace(err)
	}
	return cp, nil
}

func (d *QueryDispatcher) execJoin(pq *parser.ParsedQuery, w io.Writer) error {
	left, err := d.requireTable(pq.JoinFirstName)
	if err != nil {
		return errors.Trace(err)
	}
	right, err := d.requireTable(pq.JoinSecondName)
	if err != nil {
		return errors.Trace(err)
	}
	leftCol, err := left.GetColumnIndex(pq.JoinFirstColumnName)
	if err != nil {
		return errors.Trace(err)
	}
	rightCol, err := right.GetColumnIndex(pq.JoinSecondColumnName)
	if err != nil {
		return errors.Trace(err)
	}
	if pq.JoinOp == common.NotEqual {
		return errors.Annotatef(common.ErrUnsupportedOp, "JOIN on !=")
	}

	// The merge needs both inputs sorted ascending on the join columns;
	// sort disposable copies rather than the user's tables.
	leftSorted, err := d.sortedTempCopy(left, "$joinTemp1_"+pq.JoinResultName, leftCol)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := leftSorted.Unload(); err != nil {
			logger.Errorf("discarding temp table %s: %v", leftSorted.Name, err)
		}
	}()
	rightSorted, err := d.sortedTempCopy(right, "$joinTemp2_"+pq.JoinResultName, rightCol)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := rightSorted.Unload(); err != nil {
			logger.Errorf("discarding temp table %s: %v", rightSorted.Name, err)
		}
	}()

	result, err := d.materialize(pq.JoinResultName, concatColumns(left, right), func(t *engine.Table) error {
		return t.JoinFrom(leftSorted, rightSorted, leftCol, rightCol, pq.JoinOp)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}

func (d *QueryDispatcher) execGroup(pq *parser.ParsedQuery, w io.Writer) error {
	src, err := d.requireTable(pq.GroupName)
	if err != nil {
		return errors.Trace(err)
	}
	spec := engine.GroupSpec{
		HavingAgg: pq.GroupHavingAgg,
		HavingOp:  pq.GroupHavingOp,
		HavingVal: pq.GroupHavingValue,
		ReturnAgg: pq.GroupReturnAgg,
	}
	if spec.GroupCol, err = src.GetColumnIndex(pq.GroupColumnName); err != nil {
		return errors.Trace(err)
	}
	if spec.HavingCol, err = src.GetColumnIndex(pq.GroupHavingColumn); err != nil {
		return errors.Trace(err)
	}
	if spec.ReturnCol, err = src.GetColumnIndex(pq.GroupReturnColumn); err != nil {
		return errors.Trace(err)
	}

	// The scan detects group boundaries by key change, so it needs the
	// input sorted ascending on the grouping column.
	sorted, err := d.sortedTempCopy(src, "$groupTemp_"+pq.GroupResultName, spec.GroupCol)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := sorted.Unload(); err != nil {
			logger.Errorf("discarding temp table %s: %v", sorted.Name, err)
		}
	}()

	resultColumns := []string{
		pq.GroupColumnName,
		pq.GroupReturnAgg.String() + pq.GroupReturnColumn,
	}
	result, err := d.materialize(pq.GroupResultName, resultColumns, func(t *engine.Table) error {
		return t.GroupFrom(sorted, spec)
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Created Table %s. Row Count: %d\n", result.Name, result.RowCount)
	return nil
}
