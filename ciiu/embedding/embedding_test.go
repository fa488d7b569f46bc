package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantDims int
		wantErr  error
	}{
		{"DefaultIsHash", Options{}, 768, nil},
		{"Hash", Options{Provider: "hash", Dimensions: 16}, 16, nil},
		{"Lexical", Options{Provider: "lexical", Dimensions: 64}, 64, nil},
		{"BowAlias", Options{Provider: "BOW", Dimensions: 8}, 8, nil},
		{"OpenAI", Options{Provider: "openai", Dimensions: 768, BaseURL: "http://localhost:8080/v1", Model: "mpnet"}, 768, nil},
		{"Unknown", Options{Provider: "word2vec"}, 0, ErrUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDims, p.Dimensions())
		})
	}
}

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(32)
	a, err := p.Embed(context.Background(), []string{"cultivo de maiz", "cultivo de maiz", "otro"})
	require.NoError(t, err)
	require.Len(t, a, 3)
	assert.Len(t, a[0], 32)
	assert.Equal(t, a[0], a[1])
	assert.NotEqual(t, a[0], a[2])
	for _, x := range a[0] {
		assert.True(t, x >= -1 && x < 1, "component %v out of range", x)
	}
}

func TestHashProviderSpreadsTexts(t *testing.T) {
	p := NewHashProvider(768)
	vecs, err := p.Embed(context.Background(), []string{"cultivo de maiz", "cultivo de maíz"})
	require.NoError(t, err)

	var dot, na, nb float64
	for i := range vecs[0] {
		a, b := float64(vecs[0][i]), float64(vecs[1][i])
		dot += a * b
		na += a * a
		nb += b * b
	}
	require.NotZero(t, na)
	require.NotZero(t, nb)
	cos := dot / math.Sqrt(na*nb)
	assert.Less(t, math.Abs(cos), 0.2, "unrelated texts should be close to orthogonal")

	_, err = p.Embed(canceledContext(), []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestLexicalProviderSharesTokens(t *testing.T) {
	p := NewLexicalProvider(512)
	vecs, err := p.Embed(context.Background(), []string{
		"cultivo de maiz",
		"cultivo de cereales",
		"cria de ganado",
		"",
	})
	require.NoError(t, err)

	dot := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			s += a[i] * b[i]
		}
		return s
	}
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]), "two shared words beat one")
	assert.Equal(t, make([]float32, 512), vecs[3])

	var total float32
	for _, x := range vecs[0] {
		total += x
	}
	assert.Equal(t, float32(3), total, "one count per token")
}

func TestAdjustToDims(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.Equal(t, []float32{1, 2}, AdjustToDims(v, 2))
	assert.Equal(t, []float32{1, 2, 3, 0}, AdjustToDims(v, 4))
	same := AdjustToDims(v, 0)
	assert.Equal(t, v, same)
	same[0] = 9
	assert.Equal(t, float32(1), v[0], "result must not alias the input")
}

// countingProvider records calls and can be told to misbehave.
type countingProvider struct {
	dims     int
	calls    atomic.Int32
	failOn   string
	shortDim bool
}

func (p *countingProvider) Dimensions() int { return p.dims }

func (p *countingProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	p.calls.Add(1)
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if s == p.failOn {
			return nil, errors.New("model exploded")
		}
		d := p.dims
		if p.shortDim {
			d--
		}
		v := make([]float32, d)
		v[0] = float32(len(s))
		out[i] = v
	}
	return out, nil
}

func TestEncoderEncodeManyKeepsOrder(t *testing.T) {
	p := &countingProvider{dims: 4}
	enc := NewEncoder(p, WithBatchSize(3), WithWorkers(4))

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}
	vecs, err := enc.EncodeMany(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 20)
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, int32(7), p.calls.Load(), "20 texts in batches of 3")
	assert.Equal(t, 4, enc.Dimensions())
}

func TestEncoderErrors(t *testing.T) {
	ctx := context.Background()

	enc := NewEncoder(&countingProvider{dims: 4, failOn: "bad"}, WithBatchSize(2))
	_, err := enc.EncodeMany(ctx, []string{"a", "b", "bad", "c"})
	assert.ErrorContains(t, err, "model exploded")

	enc = NewEncoder(&countingProvider{dims: 4, shortDim: true})
	_, err = enc.Encode(ctx, "x")
	assert.ErrorIs(t, err, ErrDimensions)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	enc = NewEncoder(&countingProvider{dims: 4})
	_, err = enc.Encode(cancelled, "x")
	assert.ErrorIs(t, err, context.Canceled)

	vecs, err := enc.EncodeMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestONNXStubWithoutTag(t *testing.T) {
	_, err := NewProvider(Options{Provider: "onnx", ModelPath: "model.onnx"})
	if errors.Is(err, ErrONNXNotAvailable) {
		_, lerr := ListONNXProviders()
		assert.ErrorIs(t, lerr, ErrONNXNotAvailable)
		return
	}
	t.Skip("built with onnx tag")
}
