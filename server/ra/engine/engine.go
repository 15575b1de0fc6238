package engine

import (
	"math"
	"path/filepath"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/server/conf"
	"github.com/xraengine/xra-server/server/ra/buffer"
	"github.com/xraengine/xra-server/server/ra/storage"
	"github.com/xraengine/xra-server/util"
)

// elementSize is the on-page accounting size of one integer value. It
// fixes the rows-per-block arithmetic independently of the in-memory
// representation.
const elementSize = 4

// Engine bundles the process state of one query engine instance: the
// buffer pool over the page store plus the table and matrix catalogs.
// It is threaded explicitly into tables, matrices and cursors, so
// several engines can coexist in one process.
type Engine struct {
	cfg      *conf.Cfg
	pool     *buffer.Pool
	tables   *TableCatalogue
	matrices *MatrixCatalogue
}

// NewEngine prepares the data directories and builds an engine over
// them.
func NewEngine(cfg *conf.Cfg) (*Engine, error) {
	if err := util.EnsureDir(cfg.DataDir); err != nil {
		return nil, errors.Annotatef(err, "creating data dir %s", cfg.DataDir)
	}
	store, err := storage.NewPageStore(cfg.TempDir(), cfg.PageCodec)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Engine{
		cfg:      cfg,
		pool:     buffer.NewPool(store, cfg.PoolCapacity),
		tables:   NewTableCatalogue(),
		matrices: NewMatrixCatalogue(),
	}, nil
}

// Cfg returns the engine configuration.
func (e *Engine) Cfg() *conf.Cfg {
	return e.cfg
}

// Pool returns the engine buffer pool.
func (e *Engine) Pool() *buffer.Pool {
	return e.pool
}

// Tables returns the table catalog.
func (e *Engine) Tables() *TableCatalogue {
	return e.tables
}

// Matrices returns the matrix catalog.
func (e *Engine) Matrices() *MatrixCatalogue {
	return e.matrices
}

// MaxRowsPerBlock is how many rows of the given width fit in one page.
func (e *Engine) MaxRowsPerBlock(columnCount int) (int, error) {
	n := e.cfg.BlockSizeKB * 1000 / (elementSize * columnCount)
	if n < 1 {
		return 0, errors.Errorf("row of %d columns does not fit a %d KB block",
			columnCount, e.cfg.BlockSizeKB)
	}
	return n, nil
}

// MatrixBlockSide is the side length of a square matrix sub-block.
func (e *Engine) MatrixBlockSide() int {
	return int(math.Sqrt(float64(e.cfg.BlockSizeKB * 1000 / elementSize)))
}

// SourcePath maps a permanent table or matrix name to its CSV path.
func (e *Engine) SourcePath(name string) string {
	return filepath.Join(e.cfg.DataDir, name+".csv")
}

// TempSourcePath maps a temporary table or matrix name to its CSV path.
func (e *Engine) TempSourcePath(name string) string {
	return filepath.Join(e.cfg.TempDir(), name+".csv")
}

// ScriptPath maps a SOURCE script name to its file path.
func (e *Engine) ScriptPath(name string) string {
	return filepath.Join(e.cfg.DataDir, name+".ra")
}
