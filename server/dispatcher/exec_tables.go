package dispatcher

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/parser"
	"github.com/xraengine/xra-server/server/ra/engine"
	"github.com/xraengine/xra-server/util"
)

func (d *QueryDispatcher) execLoad(pq *parser.ParsedQuery, w io.Writer) error {
	if d.eng.Tables().Has(pq.LoadName) {
		return errors.Annotatef(common.ErrTableExists, "%s", pq.LoadName)
	}
	t := engine.NewTable(d.eng, pq.LoadName)
	if !util.FileExists(t.SourceFileName) {
		return errors.Annotatef(common.ErrSemantic, "no data file for %s", pq.LoadName)
	}
	if err := t.Load(); err != nil {
		if unloadErr := t.Unload(); unloadErr != nil {
			logger.Errorf("discarding partial table %s: %v", pq.LoadName, unloadErr)
		}
		return errors.Trace(err)
	}
	d.eng.Tables().Insert(t)
	fmt.Fprintf(w, "Loaded Table. Column Count: %d Row Count: %d\n", t.ColumnCount, t.RowCount)
	return nil
}

func (d *QueryDispatcher) execPrint(pq *parser.ParsedQuery, w io.Writer) error {
	t, err := d.requireTable(pq.PrintName)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(t.Print(w))
}

func (d *QueryDispatcher) execExport(pq *parser.ParsedQuery, w io.Writer) error {
	t, err := d.requireTable(pq.ExportName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := t.MakePermanent(); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(w, "Exported Table %s\n", t.Name)
	return nil
}

func (d *QueryDispatcher) execRename(pq *parser.ParsedQuery, w io.Writer) error {
	t, err := d.requireTable(pq.RenameName)
	if err != nil {
		return errors.Trace(err)
	}
	if !t.IsColumn(pq.RenameFromName) {
		return errors.Annotatef(common.ErrColumnNotFound, "%s.%s", t.Name, pq.RenameFromName)
	}
	if t.IsColumn(pq.RenameToName) {
		return errors.Annotatef(common.ErrDuplicateColumn, "%s.%s", t.Name, pq.RenameToName)
	}
	t.RenameColumn(pq.RenameFromName, pq.RenameToName)
	fmt.Fprintf(w, "Renamed Column %s to %s\n", pq.RenameFromName, pq.RenameToName)
	return nil
}

func (d *QueryDispatcher) execClear(pq *parser.ParsedQuery, w io.Writer) error {
	if t := d.eng.Tables().Get(pq.ClearName); t != nil {
		d.eng.Tables().Remove(pq.ClearName)
		if err := t.Unload(); err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(w, "Cleared Table %s\n", pq.ClearName)
		return nil
	}
	if m := d.eng.Matrices().Get(pq.ClearName); m != nil {
		d.eng.Matrices().Remove(pq.ClearName)
		if err := m.Unload(); err != nil {
			return errors.Trace(err)
		}
		fmt.Fprintf(w, "Cleared Matrix %s\n", pq.ClearName)
		return nil
	}
	return errors.Annotatef(common.ErrTableNotFound, "%s", pq.ClearName)
}

func (d *QueryDispatcher) execList(w io.Writer) error {
	for _, name := range d.eng.Tables().Names() {
		fmt.Fprintln(w, name)
	}
	return nil
}

func (d *QueryDispatcher) execListMatrices(w io.Writer) error {
	for _, name := range d.eng.Matrices().Names() {
		fmt.Fprintln(w, name)
	}
	return nil
}

// execSource replays a query script from <data>/<name>.ra, stopping at
// the first failing command.
func (d *QueryDispatcher) execSource(pq *parser.ParsedQuery, w io.Writer) error {
	path := d.eng.ScriptPath(pq.SourceName)
	f, err := os.Open(path)
	if err != nil {
		return errors.Annotatef(err, "opening script %s", pq.SourceName)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if err := d.run(line, w); err != nil {
			return errors.Annotatef(err, "script %s: %q", pq.SourceName, line)
		}
	}
	return errors.Annotatef(scanner.Err(), "reading script %s", pq.SourceName)
}
