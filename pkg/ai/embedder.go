package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// OpenAIEmbedder calls the Embeddings API. It satisfies the pipeline's
// Embedder interface.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	retry     RetryPolicy
	logger    *zap.Logger
}

// NewOpenAIEmbedder creates an embedder. A positive dimension is requested
// from the API and enforced on every response.
func NewOpenAIEmbedder(apiKey, model string, dimension int, opts ...Option) *OpenAIEmbedder {
	o := newClientOptions(opts)
	return &OpenAIEmbedder{
		client:    newOpenAIClient(apiKey, o),
		model:     model,
		dimension: dimension,
		retry:     o.retry,
		logger:    o.logger,
	}
}

// ModelName returns the embedding model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Dimension returns the configured vector size.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	var resp *openai.CreateEmbeddingResponse
	err := retry(ctx, e.retry, e.logger, "openai.embeddings", func() error {
		var err error
		resp, err = e.client.Embeddings.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if e.dimension > 0 && len(d.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding has dimension %d, expected %d", len(d.Embedding), e.dimension)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vectors[d.Index] = v
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}
