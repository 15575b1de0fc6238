package engine

import (
	"github.com/juju/errors"

	"github.com/xraengine/xra-server/server/ra/storage"
)

// pageSource is the capability a cursor needs from its owner: how many
// blocks there are and what the block at an index is called. Table and
// Matrix both implement it, which is all the polymorphism cursors need.
type pageSource interface {
	blockTotal() int
	blockPageName(idx int) string
}

// Cursor is a forward iterator over an owner's pages. It borrows the
// buffer-pool copy of one page at a time and re-requests pages through
// the pool, so scans of arbitrarily large tables stay within the pool
// budget.
type Cursor struct {
	eng         *Engine
	owner       pageSource
	pageIndex   int
	pagePointer int
	page        *storage.Page
}

// newCursor positions a cursor on the owner's startBlock. An owner
// with no blocks at all gets a cursor that is already at end-of-scan.
func newCursor(eng *Engine, owner pageSource, startBlock int) (*Cursor, error) {
	c := &Cursor{eng: eng, owner: owner}
	if owner.blockTotal() == 0 {
		c.page = storage.NewPage("", nil, 0)
		return c, nil
	}
	if err := c.NextPage(startBlock); err != nil {
		return nil, errors.Trace(err)
	}
	return c, nil
}

// GetNext returns the next row of the scan, advancing across page
// boundaries. A nil row with a nil error signals end-of-scan.
func (c *Cursor) GetNext() ([]int64, error) {
	row := c.page.GetRow(c.pagePointer)
	c.pagePointer++
	if row != nil {
		return row, nil
	}
	if c.pageIndex+1 >= c.owner.blockTotal() {
		return nil, nil
	}
	if err := c.NextPage(c.pageIndex + 1); err != nil {
		return nil, errors.Trace(err)
	}
	row = c.page.GetRow(c.pagePointer)
	c.pagePointer++
	return row, nil
}

// PageRows returns all valid rows of the page the cursor sits on.
func (c *Cursor) PageRows() [][]int64 {
	return c.page.Rows()
}

// PageIndex is the block the cursor currently reads.
func (c *Cursor) PageIndex() int {
	return c.pageIndex
}

// NextPage repositions the cursor to the given block and rewinds it to
// the block's first row.
func (c *Cursor) NextPage(idx int) error {
	page, err := c.eng.pool.GetPage(c.owner.blockPageName(idx))
	if err != nil {
		return errors.Trace(err)
	}
	c.page = page
	c.pageIndex = idx
	c.pagePointer = 0
	return nil
}

// Clone forks the cursor at its current position. The fork advances
// independently; both borrow pool pages by name, so neither pins
// anything.
func (c *Cursor) Clone() *Cursor {
	fork := *c
	return &fork
}
