package indexing

import (
	"container/heap"
	"fmt"
)

// FlatIndex is an exact inner-product index. Every stored vector has unit
// length, so scores are cosine similarities. A built index is immutable and
// safe for concurrent searches.
type FlatIndex struct {
	dim  int
	data []float32 // n*dim, row-major, unit rows
	ids  []VectorID
}

// Build copies and normalizes vectors and attaches ids to them. vectors and ids
// must have the same length, all vectors the same positive dimension, and ids
// must be unique. A zero vector has no direction and is rejected. Nothing is
// returned on failure.
func Build(vectors [][]float32, ids []VectorID) (*FlatIndex, error) {
	if len(vectors) != len(ids) {
		return nil, fmt.Errorf("%w: %d vectors, %d ids", ErrLengthMismatch, len(vectors), len(ids))
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, ErrZeroDimension
	}
	seen := make(map[VectorID]int, len(ids))
	data := make([]float32, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		if j, dup := seen[ids[i]]; dup {
			return nil, fmt.Errorf("%w: %d at positions %d and %d", ErrDuplicateID, ids[i], j, i)
		}
		seen[ids[i]] = i
		row := data[i*dim : (i+1)*dim]
		copy(row, v)
		if Norm(row) == 0 {
			return nil, fmt.Errorf("%w: vector %d (id %d)", ErrZeroVector, i, ids[i])
		}
		NormalizeInPlace(row)
	}
	own := make([]VectorID, len(ids))
	copy(own, ids)
	return &FlatIndex{dim: dim, data: data, ids: own}, nil
}

// BuildSequential builds an index whose ids are the insertion positions.
func BuildSequential(vectors [][]float32) (*FlatIndex, error) {
	ids := make([]VectorID, len(vectors))
	for i := range ids {
		ids[i] = VectorID(i)
	}
	return Build(vectors, ids)
}

// Dim returns the vector dimension.
func (x *FlatIndex) Dim() int { return x.dim }

// Len returns the number of stored vectors.
func (x *FlatIndex) Len() int { return len(x.ids) }

// IDs returns a copy of the ids in insertion order.
func (x *FlatIndex) IDs() []VectorID {
	out := make([]VectorID, len(x.ids))
	copy(out, x.ids)
	return out
}

// Vector returns the stored unit vector at position i. The slice aliases index
// memory and must not be modified.
func (x *FlatIndex) Vector(i int) []float32 {
	return x.data[i*x.dim : (i+1)*x.dim : (i+1)*x.dim]
}

// Search returns the k stored vectors with the largest inner product against
// the normalized query, best first. Equal scores keep insertion order. Fewer
// than k hits are returned only when the index holds fewer than k vectors.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	q := NormalizeL2(query)
	if k > len(x.ids) {
		k = len(x.ids)
	}

	h := make(hitHeap, 0, k)
	for i := range x.ids {
		hit := Hit{ID: x.ids[i], Similarity: clampUnit(Dot(q, x.Vector(i))), Position: i}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	out := make([]Hit, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Hit)
	}
	return out, nil
}

// better orders hits by descending similarity, then ascending position.
func better(a, b Hit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.Position < b.Position
}

// hitHeap keeps the current worst hit at the root.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(v any)        { *h = append(*h, v.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
