// Package catalog holds the immutable classification tables served by the
// search engine and the loaders that read them from spreadsheets.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/normalize"
)

var (
	ErrEmptyCatalog    = errors.New("catalog has no entries")
	ErrDuplicateCode   = errors.New("duplicate catalog code")
	ErrEmptyCode       = errors.New("catalog entry has an empty code")
	ErrEmptyDesc       = errors.New("catalog entry has no searchable description")
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingColumn   = errors.New("required column not found")
	ErrUnsupportedFile = errors.New("unsupported catalog file type")
)

// Entry is one row of a classification catalog.
type Entry struct {
	Code                  string
	RawDescription        string
	NormalizedDescription string
	Category              Category
}

// Catalog is an ordered, read-only table of entries for one dataset variant.
// Row positions are stable for the lifetime of the value.
type Catalog struct {
	name    string
	entries []Entry
	byCode  map[string]int
	present map[Category]int
}

// New validates entries and builds a catalog. Missing normalized descriptions
// are filled with normalize.Normalize(RawDescription); an entry whose
// description normalizes to nothing cannot be encoded and is rejected. The
// input slice is copied.
func New(name string, entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyCatalog)
	}
	c := &Catalog{
		name:    name,
		entries: make([]Entry, len(entries)),
		byCode:  make(map[string]int, len(entries)),
		present: make(map[Category]int),
	}
	for i, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			return nil, fmt.Errorf("%s: row %d: %w", name, i, ErrEmptyCode)
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("%s: row %d (%s): %w: %q", name, i, e.Code, ErrUnknownCategory, e.Category)
		}
		if prev, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("%s: rows %d and %d: %w %q", name, prev, i, ErrDuplicateCode, e.Code)
		}
		if e.NormalizedDescription == "" {
			e.NormalizedDescription = normalize.Normalize(e.RawDescription)
		}
		if e.NormalizedDescription == "" {
			return nil, fmt.Errorf("%s: row %d (%s): %w", name, i, e.Code, ErrEmptyDesc)
		}
		c.entries[i] = e
		c.byCode[e.Code] = i
		c.present[e.Category]++
	}
	return c, nil
}

// Name returns the dataset name, e.g. "v4".
func (c *Catalog) Name() string { return c.name }

// Len returns the number of rows.
func (c *Catalog) Len() int { return len(c.entries) }

// Row returns the entry at position i. It panics when i is out of range, like a slice.
func (c *Catalog) Row(i int) Entry { return c.entries[i] }

// Lookup finds the row holding code.
func (c *Catalog) Lookup(code string) (Entry, int, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Entry{}, -1, false
	}
	return c.entries[i], i, true
}

// Codes returns the codes in row order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Code
	}
	return out
}

// NormalizedDescriptions returns the texts to encode, in row order.
func (c *Catalog) NormalizedDescriptions() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.NormalizedDescription
	}
	return out
}

// CategoryCounts returns the number of rows per category, in hierarchy order,
// omitting categories that do not occur.
func (c *Catalog) CategoryCounts() []CategoryCount {
	out := make([]CategoryCount, 0, len(c.present))
	for _, cat := range Categories {
		if n := c.present[cat]; n > 0 {
			out = append(out, CategoryCount{Category: cat, Rows: n})
		}
	}
	return out
}

// CategoryCount pairs a category with its row count.
type CategoryCount struct {
	Category Category `json:"category"`
	Rows     int      `json:"rows"`
}
