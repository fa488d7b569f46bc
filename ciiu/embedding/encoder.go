package embedding

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Encoder wraps a Provider with single-text and batched encoding. Batches run
// concurrently on a bounded conc pool and results keep input order. Every
// returned vector is checked against the provider's dimension.
type Encoder struct {
	provider  Provider
	batchSize int
	workers   int
	logger    zerolog.Logger
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithBatchSize sets how many texts go into one provider call.
func WithBatchSize(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithWorkers bounds how many batches are encoded at once.
func WithWorkers(n int) EncoderOption {
	return func(e *Encoder) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) EncoderOption {
	return func(e *Encoder) { e.logger = l }
}

func NewEncoder(p Provider, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		provider:  p,
		batchSize: 32,
		workers:   max(1, runtime.NumCPU()/2),
		logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.With().Str("component", "encoder").Logger()
	return e
}

// Dimensions returns the vector dimension D.
func (e *Encoder) Dimensions() int { return e.provider.Dimensions() }

// Encode embeds a single text.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeMany embeds texts in order.
func (e *Encoder) EncodeMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	out := make([][]float32, len(texts))

	p := pool.New().WithMaxGoroutines(e.workers).WithContext(ctx).WithCancelOnError()
	for lo := 0; lo < len(texts); lo += e.batchSize {
		lo, hi := lo, min(lo+e.batchSize, len(texts))
		p.Go(func(ctx context.Context) error {
			vecs, err := e.embed(ctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", lo, hi, err)
			}
			copy(out[lo:hi], vecs)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("texts", len(texts)).
		Int("batch_size", e.batchSize).
		Dur("took", time.Since(start)).
		Msg("Batch encoding completed")
	return out, nil
}

func (e *Encoder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vecs, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrResultCount, len(vecs), len(texts))
	}
	dim := e.provider.Dimensions()
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: input %d has %d, want %d", ErrDimensions, i, len(v), dim)
		}
	}
	return vecs, nil
}
