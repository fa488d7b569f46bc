package indexing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
)

// SnapshotMeta captures summary information for a built snapshot.
type SnapshotMeta struct {
	ID        uuid.UUID
	Dataset   string
	Rows      int
	Dim       int
	AuxTexts  int
	BuiltAt   time.Time
	BuildTook time.Duration
}

// Snapshot bundles everything a search needs for one dataset. It is built
// whole by BuildSnapshot and never modified afterwards; every id the index can
// return resolves to a row of Catalog.
type Snapshot struct {
	Meta       SnapshotMeta
	Catalog    *catalog.Catalog
	Index      *FlatIndex
	Resolver   *Resolver
	Categories *CategoryBitmaps
	Auxiliary  *Corpus
}

// BuildSnapshot assembles a snapshot from a catalog and the vectors of its
// normalized descriptions, in row order. aux may be nil.
func BuildSnapshot(cat *catalog.Catalog, vectors [][]float32, aux *Corpus) (*Snapshot, error) {
	return BuildSnapshotWith(cat, vectors, aux, HashCode)
}

// BuildSnapshotWith is BuildSnapshot with a custom code hasher.
func BuildSnapshotWith(cat *catalog.Catalog, vectors [][]float32, aux *Corpus, hash CodeHasher) (*Snapshot, error) {
	start := time.Now()
	if cat == nil || cat.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	if len(vectors) != cat.Len() {
		return nil, fmt.Errorf("%s: %w: %d rows, %d vectors", cat.Name(), ErrLengthMismatch, cat.Len(), len(vectors))
	}
	ids, err := HashCodesWith(cat.Codes(), hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cat.Name(), err)
	}
	idx, err := Build(vectors, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cat.Name(), err)
	}
	res, err := NewResolver(ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cat.Name(), err)
	}
	if aux == nil {
		aux = EmptyCorpus()
	}
	if !aux.Empty() && aux.Dim() != idx.Dim() {
		return nil, fmt.Errorf("%s: %w: auxiliary corpus has %d dimensions, catalog %d",
			cat.Name(), ErrDimensionMismatch, aux.Dim(), idx.Dim())
	}
	return &Snapshot{
		Meta: SnapshotMeta{
			ID:        uuid.New(),
			Dataset:   cat.Name(),
			Rows:      cat.Len(),
			Dim:       idx.Dim(),
			AuxTexts:  aux.Len(),
			BuiltAt:   time.Now(),
			BuildTook: time.Since(start),
		},
		Catalog:    cat,
		Index:      idx,
		Resolver:   res,
		Categories: BuildCategoryBitmaps(cat),
		Auxiliary:  aux,
	}, nil
}

// Corpus is the auxiliary text collection used for query expansion, with a
// unit vector per text. It has no catalog semantics.
type Corpus struct {
	texts []string
	index *FlatIndex
}

// EmptyCorpus returns a corpus with no texts.
func EmptyCorpus() *Corpus { return &Corpus{} }

// NewCorpus pairs texts with their vectors. Texts whose vector is zero can
// never be similar to a query and are left out. Empty input gives an empty corpus.
func NewCorpus(texts []string, vectors [][]float32) (*Corpus, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("auxiliary corpus: %w: %d texts, %d vectors", ErrLengthMismatch, len(texts), len(vectors))
	}
	own := make([]string, 0, len(texts))
	kept := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if Norm(v) == 0 {
			continue
		}
		own = append(own, texts[i])
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return EmptyCorpus(), nil
	}
	idx, err := BuildSequential(kept)
	if err != nil {
		return nil, fmt.Errorf("auxiliary corpus: %w", err)
	}
	return &Corpus{texts: own, index: idx}, nil
}

// Empty reports whether the corpus has no texts.
func (c *Corpus) Empty() bool { return c == nil || c.index == nil }

func (c *Corpus) Len() int {
	if c.Empty() {
		return 0
	}
	return len(c.texts)
}

func (c *Corpus) Dim() int {
	if c.Empty() {
		return 0
	}
	return c.index.Dim()
}

// Text returns the text at corpus position i.
func (c *Corpus) Text(i int) string { return c.texts[i] }

// Index returns the vector index over the corpus; ids are corpus positions.
func (c *Corpus) Index() *FlatIndex { return c.index }
