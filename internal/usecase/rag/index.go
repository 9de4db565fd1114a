// Package rag builds and queries the per-meeting retrieval index.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/vectorindex"
)

// DefaultBatchSize matches the embedding API's per-request input limit.
const DefaultBatchSize = 100

// Match is one query hit.
type Match struct {
	Chunk    entities.TranscriptChunk
	Position int
	Distance float32
}

// Index pairs a flat vector index with the chunks it was built from.
// Position i in the vector index is chunks[i]. An Index is read-only after
// Build/Load and safe for concurrent queries.
type Index struct {
	chunks   []entities.TranscriptChunk
	flat     *vectorindex.Flat
	model    string
	embedder services.Embedder
}

type options struct {
	batchSize int
}

// Option configures Build and Load.
type Option func(*options)

// WithBatchSize sets how many texts are sent per embedding call.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Build embeds every chunk's text and indexes the vectors in chunk order.
func Build(ctx context.Context, embedder services.Embedder, chunks []entities.TranscriptChunk, opts ...Option) (*Index, error) {
	if len(chunks) == 0 {
		return nil, apperrors.ErrValidationFailed(entities.ErrNoChunks)
	}
	o := newOptions(opts)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedAll(ctx, embedder, texts, o.batchSize)
	if err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if want := embedder.Dimension(); want > 0 && want != dim {
		return nil, dimensionMismatch(want, dim)
	}
	flat, err := vectorindex.NewFlat(dim)
	if err != nil {
		return nil, fmt.Errorf("embedder returned an empty vector: %w", err)
	}
	if err := flat.Add(vectors...); err != nil {
		return nil, apperrors.ErrEmbeddingMismatch(strconv.Itoa(dim), err.Error())
	}

	owned := make([]entities.TranscriptChunk, len(chunks))
	copy(owned, chunks)
	return &Index{
		chunks:   owned,
		flat:     flat,
		model:    embedder.ModelName(),
		embedder: embedder,
	}, nil
}

// blankStandIn is embedded in place of empty chunk text; hosted embedding
// APIs reject empty inputs and silent segments often transcribe to "".
const blankStandIn = "[silence]"

// embedInputs returns texts with blank entries replaced by blankStandIn.
// The caller's slice is left untouched.
func embedInputs(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			t = blankStandIn
		}
		out[i] = t
	}
	return out
}

func embedAll(ctx context.Context, embedder services.Embedder, texts []string, batchSize int) ([][]float32, error) {
	texts = embedInputs(texts)
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed texts %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func dimensionMismatch(expected, actual int) error {
	return apperrors.ErrEmbeddingMismatch(
		"dimension "+strconv.Itoa(expected),
		"dimension "+strconv.Itoa(actual),
	)
}

// Len returns the number of addressable positions.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int {
	return ix.flat.Dim()
}

// ModelName returns the embedding model the index was built with.
func (ix *Index) ModelName() string {
	return ix.model
}

// Chunks returns a copy of the indexed chunks in position order.
func (ix *Index) Chunks() []entities.TranscriptChunk {
	out := make([]entities.TranscriptChunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// Search returns up to topK matches by ascending distance. Positions that do
// not map to a chunk are dropped.
func (ix *Index) Search(vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, apperrors.ErrValidationFailed(entities.ErrInvalidTopK)
	}
	results, err := ix.flat.Search(vector, topK)
	if errors.Is(err, vectorindex.ErrDimensionMismatch) {
		return nil, dimensionMismatch(ix.flat.Dim(), len(vector))
	}
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if r.Position < 0 || r.Position >= len(ix.chunks) {
			continue
		}
		matches = append(matches, Match{
			Chunk:    ix.chunks[r.Position],
			Position: r.Position,
			Distance: r.Distance,
		})
	}
	return matches, nil
}

// Query returns up to topK chunks nearest to vector.
func (ix *Index) Query(vector []float32, topK int) ([]entities.TranscriptChunk, error) {
	matches, err := ix.Search(vector, topK)
	if err != nil {
		return nil, err
	}
	return ChunksOf(matches), nil
}

// QueryByText embeds text with the build-time embedder and queries.
func (ix *Index) QueryByText(ctx context.Context, text string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, apperrors.ErrValidationFailed(entities.ErrInvalidTopK)
	}
	if ix.embedder == nil {
		return nil, fmt.Errorf("index has no embedder attached")
	}
	if got := ix.embedder.ModelName(); got != ix.model {
		return nil, apperrors.ErrEmbeddingMismatch(ix.model, got)
	}
	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors))
	}
	return ix.Search(vectors[0], topK)
}

// ChunksOf extracts the chunks of matches in order.
func ChunksOf(matches []Match) []entities.TranscriptChunk {
	out := make([]entities.TranscriptChunk, len(matches))
	for i, m := range matches {
		out[i] = m.Chunk
	}
	return out
}
