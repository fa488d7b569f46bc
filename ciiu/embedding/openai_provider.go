package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// openAIProvider calls an OpenAI-compatible /embeddings endpoint, such as a
// local text-embeddings-inference server hosting a sentence-transformers model.
type openAIProvider struct {
	dims     int
	embedder embeddings.Embedder
}

func newOpenAIProvider(opts Options) (Provider, error) {
	token := opts.APIKey
	if token == "" {
		// local OpenAI-compatible services don't require authentication
		token = "none"
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithEmbeddingModel(opts.Model))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	embOpts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if opts.BatchSize > 0 {
		embOpts = append(embOpts, embeddings.WithBatchSize(opts.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, embOpts...)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &openAIProvider{dims: opts.Dimensions, embedder: embedder}, nil
}

func (p *openAIProvider) Dimensions() int { return p.dims }

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := p.embedder.EmbedDocuments(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = AdjustToDims(v, p.dims)
	}
	return out, nil
}
