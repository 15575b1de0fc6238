package engine

import (
	"container/heap"
	"sort"

	"github.com/juju/errors"

	"github.com/xraengine/xra-server/logger"
	"github.com/xraengine/xra-server/server/common"
	"github.com/xraengine/xra-server/server/ra/storage"
)

// SortKey is one component of a composite sort order.
type SortKey struct {
	ColumnIndex int
	Order       common.SortOrder
}

// lessByKeys compares two rows under the composite key, lexicographic
// with per-key direction.
func lessByKeys(keys []SortKey, a, b []int64) bool {
	for _, k := range keys {
		av, bv := a[k.ColumnIndex], b[k.ColumnIndex]
		if av == bv {
			continue
		}
		if k.Order == common.Desc {
			return av > bv
		}
		return av < bv
	}
	return false
}

// Sort rearranges the table in place under the composite key. The
// algorithm is the textbook external sort-merge: every page is sorted
// individually, then runs are merged k-way with k = POOL_CAPACITY - 1,
// leaving one pool slot for the output page.
func (t *Table) Sort(keys []SortKey) error {
	logger.Trace("Table::Sort " + t.Name)
	if len(keys) == 0 {
		return errors.Annotatef(common.ErrSemantic, "sort of %s needs at least one key", t.Name)
	}
	if t.BlockCount == 0 {
		return nil
	}
	if err := t.sortPages(keys); err != nil {
		return errors.Trace(err)
	}
	if t.BlockCount <= 1 {
		return nil
	}
	return errors.Trace(t.mergeRuns(keys))
}

// sortPages turns every page into a one-page sorted run.
func (t *Table) sortPages(keys []SortKey) error {
	for i := 0; i < t.BlockCount; i++ {
		pageName := storage.PageName(t.Name, i)
		page, err := t.eng.pool.GetPage(pageName)
		if err != nil {
			return errors.Trace(err)
		}
		// The resident page is immutable: sort a copied row slice and
		// write it back through the pool.
		rows := append([][]int64(nil), page.Rows()...)
		sort.SliceStable(rows, func(a, b int) bool {
			return lessByKeys(keys, rows[a], rows[b])
		})
		if err := t.eng.pool.WritePage(pageName, rows, len(rows)); err != nil {
			return errors.Trace(err)
		}
		t.eng.pool.DeleteFromPool(pageName)
	}
	return nil
}

// mergeItem is one heap entry of the k-way merge: the head row of a
// run plus the run's position, which doubles as the stability
// tie-break.
type mergeItem struct {
	row    []int64
	runIdx int
}

type mergeHeap struct {
	items []mergeItem
	keys  []SortKey
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if lessByKeys(h.keys, a.row, b.row) {
		return true
	}
	if lessByKeys(h.keys, b.row, a.row) {
		return false
	}
	return a.runIdx < b.runIdx
}

func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap) Push(x interface{}) {
	h.items = append(h.items, x.(mergeItem))
}

func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// mergeRuns repeatedly merges groups of up to k adjacent runs until a
// single run spans the table. Each level writes its output into the
// table's sort-temp pages, which are then renamed over the originals.
func (t *Table) mergeRuns(keys []SortKey) error {
	k := t.eng.cfg.PoolCapacity - 1
	tempName := "$sortTemp_" + t.Name

	for runLength := 1; runLength < t.BlockCount; runLength *= k {
		if err := t.mergeLevel(keys, k, runLength, tempName); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// mergeLevel merges every group of k adjacent runs of runLength pages
// into one run, then adopts the temp pages as the table's pages. Block
// accounting is recomputed from the pages actually written; the counts
// recorded at load time stop describing the layout as soon as a level
// repacks rows.
func (t *Table) mergeLevel(keys []SortKey, k, runLength int, tempName string) error {
	prefix := make([]int64, t.BlockCount+1)
	for i, n := range t.RowsPerBlockCount {
		prefix[i+1] = prefix[i] + int64(n)
	}

	tempPageIndex := 0
	var newRowsPerBlock []int
	groupSpan := k * runLength

	for g0 := 0; g0 < t.BlockCount; g0 += groupSpan {
		cursors := make([]*Cursor, 0, k)
		remaining := make([]int64, 0, k)
		h := &mergeHeap{keys: keys}

		for start := g0; start < g0+groupSpan && start < t.BlockCount; start += runLength {
			end := start + runLength
			if end > t.BlockCount {
				end = t.BlockCount
			}
			cursor, err := t.cursorAt(start)
			if err != nil {
				return errors.Trace(err)
			}
			runIdx := len(cursors)
			cursors = append(cursors, cursor)
			remaining = append(remaining, prefix[end]-prefix[start])

			row, err := cursor.GetNext()
			if err != nil {
				return errors.Trace(err)
			}
			h.items = append(h.items, mergeItem{row: row, runIdx: runIdx})
			remaining[runIdx]--
		}
		heap.Init(h)

		out := make([][]int64, 0, t.MaxRowsPerBlock)
		for h.Len() > 0 {
			item := heap.Pop(h).(mergeItem)
			out = append(out, item.row)
			if len(out) == t.MaxRowsPerBlock {
				name := storage.PageName(tempName, tempPageIndex)
				if err := t.eng.pool.WritePage(name, out, len(out)); err != nil {
					return errors.Trace(err)
				}
				newRowsPerBlock = append(newRowsPerBlock, len(out))
				tempPageIndex++
				out = out[:0]
			}
			if remaining[item.runIdx] > 0 {
				row, err := cursors[item.runIdx].GetNext()
				if err != nil {
					return errors.Trace(err)
				}
				heap.Push(h, mergeItem{row: row, runIdx: item.runIdx})
				remaining[item.runIdx]--
			}
		}
		if len(out) > 0 {
			name := storage.PageName(tempName, tempPageIndex)
			if err := t.eng.pool.WritePage(name, out, len(out)); err != nil {
				return errors.Trace(err)
			}
			newRowsPerBlock = append(newRowsPerBlock, len(out))
			tempPageIndex++
		}
	}

	// Adopt the level's output: temp pages replace the originals, and
	// any originals past the new block count are deleted (a level can
	// compact partially filled pages).
	for i := 0; i < tempPageIndex; i++ {
		err := t.eng.pool.RenamePage(storage.PageName(tempName, i), storage.PageName(t.Name, i))
		if err != nil {
			return errors.Trace(err)
		}
	}
	for i := tempPageIndex; i < t.BlockCount; i++ {
		if err := t.eng.pool.DeletePage(storage.PageName(t.Name, i)); err != nil {
			return errors.Trace(err)
		}
	}
	t.BlockCount = tempPageIndex
	t.RowsPerBlockCount = newRowsPerBlock
	return nil
}
