package dispatcher

import (
	"fmt"
	"io"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/parser"
	"github.com/xraengine/xra-server/server/ra/engine"
	"github.com/xraengine/xra-server/util"
)

func (d *QueryDispatcher) execLoadMatrix(pq *parser.ParsedQuery, w io.Writer) error {
	if d.eng.Matrices().Has(pq.LoadName) {
		return errors.Annotatef(common.ErrMatrixExists, "%s", pq.LoadName)
	}
	m := engine.NewMatrix(d.eng, pq.LoadName)
	if !util.FileExists(m.SourceFileName) {
		return errors.Annotatef(common.ErrSemantic, "no data file for %s", pq.LoadName)
	}
	if err := m.Load(); err != nil {
		if unloadErr := m.Unload(); unloadErr != nil {
			logger.Errorf("discarding partial matrix %s: %v", pq.LoadName, unloadErr)
		}
		return errors.Trace(err)
	}
	d.eng.Matrices().Insert(m)
	fmt.Fprintf(w, "Loaded Matrix. Order: %d\n", m.Order)
	return nil
}

func (d *QueryDispatcher) execPrintMatrix(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.PrintName)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(m.Print(w))
}

func (d *QueryDispatcher) execExportMatrix(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.ExportName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := m.MakePermanent(); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Exported Matrix %s\n", m.Name)
	return nil
}

func (d *QueryDispatcher) execRenameMatrix(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.RenameFromName)
	if err != nil {
		return errors.Trace(err)
	}
	if d.eng.Matrices().Has(pq.RenameToName) {
		return errors.Annotatef(common.ErrMatrixExists, "%s", pq.RenameToName)
	}
	d.eng.Matrices().Remove(pq.RenameFromName)
	if err := m.Rename(pq.RenameToName); err != nil {
		d.eng.Matrices().Insert(m)
		return errors.Trace(err)
	}
	d.eng.Matrices().Insert(m)
	fmt.Fprintf(w, "Renamed Matrix %s to %s\n", pq.RenameFromName, pq.RenameToName)
	return nil
}

func (d *QueryDispatcher) execTranspose(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.TransposeName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := m.Transpose(); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Transposed Matrix %s\n", m.Name)
	return nil
}

func (d *QueryDispatcher) execCheckSymmetry(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.SymmetryName)
	if err != nil {
		return errors.Trace(err)
	}
	symmetric, err := m.CheckSymmetry()
	if err != nil {
		return errors.Trace(err)
	}
	if symmetric {
		fmt.Fprintln(w, "TRUE")
	} else {
		fmt.Fprintln(w, "FALSE")
	}
	return nil
}

func (d *QueryDispatcher) execCompute(pq *parser.ParsedQuery, w io.Writer) error {
	m, err := d.requireMatrix(pq.ComputeName)
	if err != nil {
		return errors.Trace(err)
	}
	resultName := pq.ComputeName + "_RESULT"
	if d.eng.Matrices().Has(resultName) {
		return errors.Annotatef(common.ErrMatrixExists, "%s", resultName)
	}
	result, err := m.Compute(resultName)
	if err != nil {
		return errors.Trace(err)
	}
	d.eng.Matrices().Insert(result)
	fmt.Fprintf(w, "Computed Matrix %s\n", result.Name)
	return nil
}
