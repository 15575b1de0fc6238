package common

import (
	"github.com/juju/errors"
)

// Sentinel errors shared across the engine layers.
var (
	ErrSyntax          = errors.New("SYNTAX ERROR")
	ErrSemantic        = errors.New("SEMANTIC ERROR")
	ErrTableNotFound   = errors.New("no such table")
	ErrMatrixNotFound  = errors.New("no such matrix")
	ErrTableExists     = errors.New("table already exists")
	ErrMatrixExists    = errors.New("matrix already exists")
	ErrColumnNotFound  = errors.New("no such column")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrEmptyTable      = errors.New("table has no rows")
	ErrPageChecksum    = errors.New("page checksum mismatch")
	ErrUnsupportedOp   = errors.New("operator not supported")
	ErrNotSquareMatrix = errors.New("matrix is not square")
)
