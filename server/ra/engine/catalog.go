package engine

import (
	"sort"
)

// TableCatalogue maps table names to live tables. Only the executor
// mutates it; operators borrow tables from it.
type TableCatalogue struct {
	tables map[string]*Table
}

// NewTableCatalogue builds an empty catalog.
func NewTableCatalogue() *TableCatalogue {
	return &TableCatalogue{tables: make(map[string]*Table)}
}

// Get returns the named table, or nil.
func (c *TableCatalogue) Get(name string) *Table {
	return c.tables[name]
}

// Has reports whether name is in the catalog.
func (c *TableCatalogue) Has(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// Insert registers a table under its name.
func (c *TableCatalogue) Insert(t *Table) {
	c.tables[t.Name] = t
}

// Remove drops the named table from the catalog without unloading it.
func (c *TableCatalogue) Remove(name string) {
	delete(c.tables, name)
}

// Names returns the catalog's table names in sorted order.
func (c *TableCatalogue) Names() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatrixCatalogue maps matrix names to live matrices.
type MatrixCatalogue struct {
	matrices map[string]*Matrix
}

// NewMatrixCatalogue builds an empty catalog.
func NewMatrixCatalogue() *MatrixCatalogue {
	return &MatrixCatalogue{matrices: make(map[string]*Matrix)}
}

// Get returns the named matrix, or nil.
func (c *MatrixCatalogue) Get(name string) *Matrix {
	return c.matrices[name]
}

// Has reports whether name is in the catalog.
func (c *MatrixCatalogue) Has(name string) bool {
	_, ok := c.matrices[name]
	return ok
}

// Insert registers a matrix under its name.
func (c *MatrixCatalogue) Insert(m *Matrix) {
	c.matrices[m.Name] = m
}

// Remove drops the named matrix from the catalog without unloading it.
func (c *MatrixCatalogue) Remove(name string) {
	delete(c.matrices, name)
}

// Names returns the catalog's matrix names in sorted order.
func (c *MatrixCatalogue) Names() []string {
	names := make([]string, 0, len(c.matrices))
	for name := range c.matrices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
