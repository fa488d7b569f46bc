package embedding

import (
	"context"

	"github.com/cespare/xxhash/v2"
)

// hashProvider gives every distinct text its own random direction: the xxhash
// of the text seeds a splitmix64 stream that fills the vector with values in
// [-1, 1). Equal texts get equal vectors, different texts are nearly
// orthogonal. It checks the rebuild and search plumbing end to end, but a
// catalog searched with it only matches queries that normalize to a stored
// description verbatim.
type hashProvider struct{ dims int }

func NewHashProvider(dims int) *hashProvider {
	if dims <= 0 {
		dims = 384
	}
	return &hashProvider{dims: dims}
}

func (h *hashProvider) Dimensions() int { return h.dims }

func (h *hashProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state := xxhash.Sum64String(s)
		vec := make([]float32, h.dims)
		for j := range vec {
			var r uint64
			state, r = splitmix64(state)
			// 24 bits convert to float32 exactly
			vec[j] = float32(r>>40)/(1<<23) - 1
		}
		out[i] = vec
	}
	return out, nil
}

func splitmix64(state uint64) (next, out uint64) {
	next = state + 0x9e3779b97f4a7c15
	z := next
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return next, z ^ (z >> 31)
}
