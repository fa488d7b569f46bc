package indexing

import (
	"fmt"
	"sort"
)

// Resolver maps vector ids to catalog rows and back. It is built once per
// snapshot and is read-only afterwards.
type Resolver struct {
	layout []VectorID // Eytzinger order
	rows   []int      // row for layout[i]
	byRow  []VectorID // row -> id
}

var _ IDMapper = (*Resolver)(nil)

// NewResolver registers ids[i] as the id of row i. Duplicate ids fail with
// ErrDuplicateID.
func NewResolver(ids []VectorID) (*Resolver, error) {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return ids[order[a]] < ids[order[b]] })

	sorted := make([]VectorID, len(ids))
	for i, row := range order {
		sorted[i] = ids[row]
		if i > 0 && sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("%w: %d at rows %d and %d", ErrDuplicateID, sorted[i], order[i-1], row)
		}
	}
	layout, rows := BuildEytzinger(sorted, order)

	byRow := make([]VectorID, len(ids))
	copy(byRow, ids)
	return &Resolver{layout: layout, rows: rows, byRow: byRow}, nil
}

// Resolve returns the row registered for id. ok is false for ids that were
// never registered, including sentinel values from under-filled searches.
func (r *Resolver) Resolve(id VectorID) (int, bool) {
	p := EytzingerSearch(r.layout, id)
	if p < 0 {
		return -1, false
	}
	return r.rows[p], true
}

// IDOf returns the id registered for row.
func (r *Resolver) IDOf(row int) (VectorID, bool) {
	if row < 0 || row >= len(r.byRow) {
		return 0, false
	}
	return r.byRow[row], true
}

// Size returns the number of registered ids.
func (r *Resolver) Size() int { return len(r.byRow) }
