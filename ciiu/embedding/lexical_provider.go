package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// lexicalProvider is a bag-of-words embedder using the hashing trick: every
// token adds 1 to the bucket xxhash(token) mod dims. Texts sharing words get
// positive cosine similarity, which makes it a deterministic stand-in for a
// neural model in tests and offline runs.
type lexicalProvider struct{ dims int }

func NewLexicalProvider(dims int) *lexicalProvider {
	if dims <= 0 {
		dims = 384
	}
	return &lexicalProvider{dims: dims}
}

func (p *lexicalProvider) Dimensions() int { return p.dims }

func (p *lexicalProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float32, p.dims)
		for _, tok := range tokens(s) {
			vec[xxhash.Sum64String(tok)%uint64(p.dims)]++
		}
		out[i] = vec
	}
	return out, nil
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
