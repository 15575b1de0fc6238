package dispatcher

import (
	"io"
	"strings"
	"sync"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/parser"
	"github.com/xraengine/xra-server/server/ra/engine"
)

// QueryDispatcher routes parsed commands to the engine operations and
// owns the semantic checks in front of them. One query executes at a
// time; the mutex serializes callers that share a dispatcher (the REPL
// or several network sessions).
type QueryDispatcher struct {
	eng *engine.Engine
	mu  sync.Mutex
}

// NewQueryDispatcher builds a dispatcher over an engine.
func NewQueryDispatcher(eng *engine.Engine) *QueryDispatcher {
	return &QueryDispatcher{eng: eng}
}

// Engine exposes the dispatcher's engine, mainly to tests.
func (d *QueryDispatcher) Engine() *engine.Engine {
	return d.eng
}

// Execute parses and runs one command line, writing human-readable
// output to w. A failed command registers no result table or matrix;
// a failing SOURCE script keeps the effects of the lines before the
// failing one.
func (d *QueryDispatcher) Execute(line string, w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run(line, w)
}

// run is Execute without the lock; SOURCE replays through it.
func (d *QueryDispatcher) run(line string, w io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "--") {
		return nil
	}
	pq, err := parser.Parse(line)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("dispatching %s", pq.QueryType)

	switch pq.QueryType {
	case common.Load:
		return d.execLoad(pq, w)
	case common.LoadMatrix:
		return d.execLoadMatrix(pq, w)
	case common.Print:
		return d.execPrint(pq, w)
	case common.PrintMatrix:
		return d.execPrintMatrix(pq, w)
	case common.Export:
		return d.execExport(pq, w)
	case common.ExportMatrix:
		return d.execExportMatrix(pq, w)
	case common.Rename:
		return d.execRename(pq, w)
	case common.RenameMatrix:
		return d.execRenameMatrix(pq, w)
	case common.Clear:
		return d.execClear(pq, w)
	case common.List:
		return d.execList(w)
	case common.ListMatrices:
		return d.execListMatrices(w)
	case common.Index:
		return errors.Annotatef(common.ErrUnsupportedOp, "INDEX is reserved")
	case common.Source:
		return d.execSource(pq, w)
	case common.Projection:
		return d.execProjection(pq, w)
	case common.Selection:
		return d.execSelection(pq, w)
	case common.Cross:
		return d.execCross(pq, w)
	case common.Distinct:
		return d.execDistinct(pq, w)
	case common.Join:
		return d.execJoin(pq, w)
	case common.Sort:
		return d.execSort(pq, w)
	case common.Order:
		return d.execOrder(pq, w)
	case common.Group:
		return d.execGroup(pq, w)
	case common.Transpose:
		return d.execTranspose(pq, w)
	case common.CheckSymmetry:
		return d.execCheckSymmetry(pq, w)
	case common.Compute:
		return d.execCompute(pq, w)
	default:
		return errors.Annotatef(common.ErrSemantic, "unhandled query type %s", pq.QueryType)
	}
}

// requireTable resolves a table name against the catalog.
func (d *QueryDispatcher) requireTable(name string) (*engine.Table, error) {
	t := d.eng.Tables().Get(name)
	if t == nil {
		return nil, errors.Annotatef(common.ErrTableNotFound, "%s", name)
	}
	return t, nil
}

// requireMatrix resolves a matrix name against the catalog.
func (d *QueryDispatcher) requireMatrix(name string) (*engine.Matrix, error) {
	m := d.eng.Matrices().Get(name)
	if m == nil {
		return nil, errors.Annotatef(common.ErrMatrixNotFound, "%s", name)
	}
	return m, nil
}

// materialize builds a result table, fills it, and registers it only
// on success. A failed fill unloads the partial pages, so no broken
// table ever reaches the catalog.
func (d *QueryDispatcher) materialize(name string, columns []string, fill func(*engine.Table) error) (*engine.Table, error) {
	if d.eng.Tables().Has(name) {
		return nil, errors.Annotatef(common.ErrTableExists, "%s", name)
	}
	t, err := engine.NewTempTable(d.eng, name, columns)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := fill(t); err != nil {
		if unloadErr := t.Unload(); unloadErr != nil {
			logger.Errorf("discarding partial table %s: %v", name, unloadErr)
		}
		return nil, errors.Trace(err)
	}
	d.eng.Tables().Insert(t)
	return t, nil
}
