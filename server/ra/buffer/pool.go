package buffer

import (
	"sync/atomic"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/ra/storage"
)

// Pool is a bounded in-memory page cache with FIFO eviction, the sole
// mediator for page reads. Pages are immutable while resident, so an
// evicted page is simply dropped; writes go through WritePage.
//
// Eviction is FIFO by insertion order, not LRU: the dominant access
// pattern is the sequential scan, and FIFO keeps the resident set
// deterministic for a given access sequence.
type Pool struct {
	store    *storage.PageStore
	capacity int

	pages map[string]*storage.Page
	queue []string

	stats struct {
		hits      uint64
		misses    uint64
		evictions uint64
	}
}

// NewPool builds a pool of the given page capacity over store.
func NewPool(store *storage.PageStore, capacity int) *Pool {
	return &Pool{
		store:    store,
		capacity: capacity,
		pages:    make(map[string]*storage.Page, capacity),
	}
}

// Capacity is the maximum number of resident pages.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Len is the current number of resident pages.
func (p *Pool) Len() int {
	return len(p.pages)
}

// Has reports whether pageName is resident, without touching disk or
// the stats counters.
func (p *Pool) Has(pageName string) bool {
	_, ok := p.pages[pageName]
	return ok
}

// GetPage returns the resident copy of pageName, reading it from disk
// on a miss. A hit does not promote the page; FIFO order is fixed at
// insertion.
func (p *Pool) GetPage(pageName string) (*storage.Page, error) {
	if page, ok := p.pages[pageName]; ok {
		atomic.AddUint64(&p.stats.hits, 1)
		return page, nil
	}
	atomic.AddUint64(&p.stats.misses, 1)

	page, err := p.store.ReadPage(pageName)
	if err != nil {
		return nil, errors.Trace(err)
	}
	p.insert(page)
	return page, nil
}

func (p *Pool) insert(page *storage.Page) {
	if len(p.pages) >= p.capacity {
		oldest := p.queue[0]
		p.queue = p.queue[1:]
		delete(p.pages, oldest)
		atomic.AddUint64(&p.stats.evictions, 1)
		logger.Trace("Pool::evict " + oldest)
	}
	p.pages[page.Name] = page
	p.queue = append(p.queue, page.Name)
}

// WritePage writes through to disk without inserting the page into the
// resident set. Any stale resident copy under the same name is dropped
// so the next read observes the new contents.
func (p *Pool) WritePage(pageName string, rows [][]int64, nRows int) error {
	if err := p.store.WritePage(pageName, rows, nRows); err != nil {
		return errors.Trace(err)
	}
	p.DeleteFromPool(pageName)
	return nil
}

// DeleteFromPool drops a resident page without touching disk.
func (p *Pool) DeleteFromPool(pageName string) {
	if _, ok := p.pages[pageName]; !ok {
		return
	}
	delete(p.pages, pageName)
	for i, name := range p.queue {
		if name == pageName {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
}

// DeletePage removes the page from the resident set and from disk.
func (p *Pool) DeletePage(pageName string) error {
	p.DeleteFromPool(pageName)
	return errors.Trace(p.store.DeletePage(pageName))
}

// RenamePage renames the backing file and drops both names from the
// resident set; a rename changes what either name means.
func (p *Pool) RenamePage(oldName, newName string) error {
	p.DeleteFromPool(oldName)
	p.DeleteFromPool(newName)
	return errors.Trace(p.store.RenamePage(oldName, newName))
}

// Store exposes the underlying page store.
func (p *Pool) Store() *storage.PageStore {
	return p.store
}

// Stats returns the cumulative hit/miss/eviction counters.
func (p *Pool) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&p.stats.hits),
		atomic.LoadUint64(&p.stats.misses),
		atomic.LoadUint64(&p.stats.evictions)
}
