package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider produces fixed-dimension embeddings from input strings
type Provider interface {
	Dimensions() int
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

const (
	ProviderHash    = "hash"
	ProviderLexical = "lexical"
	ProviderOpenAI  = "openai"
	ProviderONNX    = "onnx"
)

var (
	ErrUnknownProvider  = errors.New("unknown embedding provider")
	ErrDimensions       = errors.New("embedding has unexpected dimensions")
	ErrResultCount      = errors.New("embedding provider returned wrong number of vectors")
	ErrONNXNotAvailable = errors.New("onnx provider not available: build with -tags onnx")
)

// Options selects and configures a provider.
type Options struct {
	Provider   string
	Dimensions int
	// ModelPath is the ONNX model file; tokenizer.json or vocab.txt is looked up next to it.
	ModelPath string
	// BaseURL, Model and APIKey configure the OpenAI-compatible provider.
	BaseURL string
	Model   string
	APIKey  string
	// ExecutionProvider is the preferred ONNX Runtime EP: "cuda", "tensorrt", "coreml", "dml" or "cpu".
	ExecutionProvider string
	DeviceID          int
	MaxSeqLen         int
	BatchSize         int
}

// NewProvider selects an embedding provider by name ("hash", "lexical", "openai", "onnx").
func NewProvider(opts Options) (Provider, error) {
	if opts.Dimensions <= 0 {
		opts.Dimensions = 768
	}
	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch {
	case name == ProviderHash || name == "" || name == "dev":
		return NewHashProvider(opts.Dimensions), nil
	case name == ProviderLexical || name == "bow":
		return NewLexicalProvider(opts.Dimensions), nil
	case name == ProviderOpenAI:
		return newOpenAIProvider(opts)
	case name == ProviderONNX || strings.HasPrefix(name, "onnx:"):
		return newONNXProvider(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
