package indexing

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashCode derives the VectorID of a catalog code: the 64-bit xxHash (XXH64,
// seed 0) of the code's UTF-8 bytes. The value is stable across processes,
// platforms and releases, unlike map or runtime hashing.
func HashCode(code string) VectorID {
	return xxhash.Sum64String(code)
}

// CodeHasher derives a VectorID from a catalog code.
type CodeHasher func(code string) VectorID

// HashCodes hashes codes in order with HashCode and fails with ErrDuplicateID
// when two codes produce the same id.
func HashCodes(codes []string) ([]VectorID, error) {
	return HashCodesWith(codes, HashCode)
}

// HashCodesWith is HashCodes with a custom hasher.
func HashCodesWith(codes []string, hash CodeHasher) ([]VectorID, error) {
	if hash == nil {
		hash = HashCode
	}
	ids := make([]VectorID, len(codes))
	seen := make(map[VectorID]int, len(codes))
	for i, c := range codes {
		id := hash(c)
		if j, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: codes %q (row %d) and %q (row %d) both map to %d",
				ErrDuplicateID, codes[j], j, c, i, id)
		}
		seen[id] = i
		ids[i] = id
	}
	return ids, nil
}
