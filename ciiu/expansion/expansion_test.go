package expansion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
)

func corpus(t *testing.T) *indexing.Corpus {
	t.Helper()
	c, err := indexing.NewCorpus(
		[]string{"siembra de maiz", "granos", "ordeno", "choclo", "trigo"},
		[][]float32{
			{1, 0.2, 0},  // ~0.98
			{0.5, 1, 0},  // ~0.45
			{0, 0, 1},    // 0
			{1, 0.2, 0},  // ties with position 0
			{0.3, 1, 0},  // ~0.29
		},
	)
	require.NoError(t, err)
	return c
}

func TestExpand(t *testing.T) {
	x := New()
	got, err := x.Expand("cultivo de maiz", []float32{1, 0, 0}, corpus(t))
	require.NoError(t, err)

	require.True(t, got.Expanded())
	require.Len(t, got.Terms, 3)
	assert.Equal(t, "siembra de maiz", got.Terms[0].Text)
	assert.Equal(t, "choclo", got.Terms[1].Text, "ties keep corpus order")
	assert.Equal(t, "granos", got.Terms[2].Text)
	assert.Equal(t, "cultivo de maiz siembra de maiz choclo granos", got.Query)
	for _, term := range got.Terms {
		assert.GreaterOrEqual(t, term.Similarity, x.MinSimilarity)
	}
}

func TestExpandRespectsThreshold(t *testing.T) {
	x := &Expander{MinSimilarity: 0.9, MaxTerms: 3}
	got, err := x.Expand("q", []float32{1, 0, 0}, corpus(t))
	require.NoError(t, err)
	assert.Len(t, got.Terms, 2)
	assert.Equal(t, "q siembra de maiz choclo", got.Query)
}

func TestExpandNoQualifyingTerm(t *testing.T) {
	x := New()
	got, err := x.Expand("pesca", []float32{0, -1, 0}, corpus(t))
	require.NoError(t, err)
	assert.False(t, got.Expanded())
	assert.Equal(t, "pesca", got.Query)
}

func TestExpandEmptyCorpusBypasses(t *testing.T) {
	x := New()
	assert.False(t, x.Enabled(indexing.EmptyCorpus()))
	assert.False(t, x.Enabled(nil))

	// a nil vector would fail a real search; bypass must not touch it
	got, err := x.Expand("pesca", nil, indexing.EmptyCorpus())
	require.NoError(t, err)
	assert.Equal(t, "pesca", got.Query)

	var disabled *Expander
	assert.False(t, disabled.Enabled(corpus(t)))
	off := &Expander{MinSimilarity: 0.4, MaxTerms: 0}
	assert.False(t, off.Enabled(corpus(t)))
}

func TestExpandDimensionMismatch(t *testing.T) {
	_, err := New().Expand("q", []float32{1, 0}, corpus(t))
	assert.ErrorIs(t, err, indexing.ErrDimensionMismatch)
}
