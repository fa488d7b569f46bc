package indexing

import (
	roaring "github.com/RoaringBitmap/roaring"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
)

// CategoryBitmaps holds one roaring bitmap of row positions per category.
type CategoryBitmaps struct {
	byCategory map[catalog.Category]*roaring.Bitmap
}

func NewCategoryBitmaps() *CategoryBitmaps {
	return &CategoryBitmaps{byCategory: make(map[catalog.Category]*roaring.Bitmap)}
}

// BuildCategoryBitmaps indexes every row of c by its category.
func BuildCategoryBitmaps(c *catalog.Catalog) *CategoryBitmaps {
	cb := NewCategoryBitmaps()
	for i := 0; i < c.Len(); i++ {
		cb.Add(c.Row(i).Category, i)
	}
	for _, bm := range cb.byCategory {
		bm.RunOptimize()
	}
	return cb
}

func (cb *CategoryBitmaps) Add(cat catalog.Category, row int) {
	bm, ok := cb.byCategory[cat]
	if !ok {
		bm = roaring.New()
		cb.byCategory[cat] = bm
	}
	bm.Add(uint32(row))
}

// Has reports whether row belongs to cat. CategoryAll matches every row.
func (cb *CategoryBitmaps) Has(cat catalog.Category, row int) bool {
	if cat.IsAll() {
		return true
	}
	bm, ok := cb.byCategory[cat]
	return ok && bm.Contains(uint32(row))
}

// Present reports whether at least one row has category cat.
func (cb *CategoryBitmaps) Present(cat catalog.Category) bool {
	bm, ok := cb.byCategory[cat]
	return ok && !bm.IsEmpty()
}
