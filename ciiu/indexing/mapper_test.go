package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver(t *testing.T) {
	ids := []VectorID{900, 5, 77, 1 << 63, 42, 0}
	r, err := NewResolver(ids)
	require.NoError(t, err)
	assert.Equal(t, len(ids), r.Size())

	for row, id := range ids {
		got, ok := r.Resolve(id)
		require.True(t, ok, "id %d", id)
		assert.Equal(t, row, got)

		back, ok := r.IDOf(row)
		require.True(t, ok)
		assert.Equal(t, id, back)
	}

	for _, missing := range []VectorID{1, 6, 78, 1<<63 + 1, ^VectorID(0)} {
		row, ok := r.Resolve(missing)
		assert.False(t, ok, "id %d must not resolve", missing)
		assert.Equal(t, -1, row)
	}

	_, ok := r.IDOf(len(ids))
	assert.False(t, ok)
	_, ok = r.IDOf(-1)
	assert.False(t, ok)
}

func TestResolverDuplicate(t *testing.T) {
	_, err := NewResolver([]VectorID{3, 1, 3})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestResolverEmpty(t *testing.T) {
	r, err := NewResolver(nil)
	require.NoError(t, err)
	_, ok := r.Resolve(0)
	assert.False(t, ok)
}

func TestEytzingerSearchAllSizes(t *testing.T) {
	for n := 0; n <= 40; n++ {
		sorted := make([]VectorID, n)
		rows := make([]int, n)
		for i := range sorted {
			sorted[i] = VectorID(10 * (i + 1))
			rows[i] = i
		}
		layout, idx := BuildEytzinger(sorted, rows)
		for i, key := range sorted {
			p := EytzingerSearch(layout, key)
			require.GreaterOrEqual(t, p, 0, "n=%d key=%d", n, key)
			assert.Equal(t, i, idx[p])
			assert.Equal(t, -1, EytzingerSearch(layout, key+1), "n=%d key=%d", n, key+1)
		}
		assert.Equal(t, -1, EytzingerSearch(layout, 0))
	}
}

func TestHashCodes(t *testing.T) {
	ids, err := HashCodes([]string{"A01", "A02", "0111"})
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, HashCode("A01"), ids[0])
	assert.Equal(t, HashCode("A01"), HashCode("A01"), "hash must be deterministic")

	_, err = HashCodes([]string{"A01", "A01"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	constant := func(string) VectorID { return 7 }
	_, err = HashCodesWith([]string{"X", "Y"}, constant)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestHashCodeKnownValue(t *testing.T) {
	// XXH64 of the empty string with seed 0
	assert.Equal(t, VectorID(0xef46db3751d8e999), HashCode(""))
}
