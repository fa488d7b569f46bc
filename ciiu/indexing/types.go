package indexing

import (
	"errors"
)

// VectorID is the stable identifier of a catalog row inside a vector index.
// It is derived from the row's code with HashCode, never from its position.
type VectorID = uint64

// Hit is one nearest-neighbour candidate returned by a search.
type Hit struct {
	ID VectorID
	// Similarity is the inner product of two unit vectors, i.e. cosine similarity.
	Similarity float32
	// Position is the insertion position of the vector in the index.
	Position int
}

var (
	ErrLengthMismatch    = errors.New("vectors and ids differ in length")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrDuplicateID       = errors.New("duplicate vector id")
	ErrEmptyIndex        = errors.New("index has no vectors")
	ErrZeroDimension     = errors.New("vector dimension must be positive")
	ErrZeroVector        = errors.New("vector has zero norm")
	ErrInvalidK          = errors.New("k must be positive")
)

// IDMapper resolves vector ids back to row positions.
type IDMapper interface {
	Resolve(id VectorID) (row int, ok bool)
	Size() int
}
