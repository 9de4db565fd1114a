package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/vectorindex"
)

// Artifact names inside an index directory.
const (
	IndexFile  = "index.bin"
	ChunksFile = "chunks.json"
)

// Save writes the index artifacts under dir. When withVectors is false only
// the header is written and Load re-embeds the chunks.
func (ix *Index) Save(ctx context.Context, w repositories.ArtifactWriter, dir string, withVectors bool) error {
	var buf bytes.Buffer
	if err := vectorindex.Encode(&buf, ix.flat, ix.model, withVectors); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	chunks, err := json.MarshalIndent(ix.chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}

	if err := w.Put(ctx, path.Join(dir, IndexFile), buf.Bytes()); err != nil {
		return err
	}
	return w.Put(ctx, path.Join(dir, ChunksFile), chunks)
}

// Load reads the artifacts written by Save. The stored model must match
// embedder.ModelName(); a mismatch is reported rather than silently
// rebuilding with a different embedding space.
func Load(ctx context.Context, r repositories.ArtifactReader, dir string, embedder services.Embedder, opts ...Option) (*Index, error) {
	o := newOptions(opts)
	indexKey := path.Join(dir, IndexFile)
	chunksKey := path.Join(dir, ChunksFile)

	raw, err := r.Get(ctx, indexKey)
	if err != nil {
		return nil, corrupt(indexKey, err)
	}
	header, flat, err := vectorindex.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.ErrCorruptState(indexKey, err)
	}

	rawChunks, err := r.Get(ctx, chunksKey)
	if err != nil {
		return nil, corrupt(chunksKey, err)
	}
	var chunks []entities.TranscriptChunk
	if err := json.Unmarshal(rawChunks, &chunks); err != nil {
		return nil, apperrors.ErrCorruptState(chunksKey, err)
	}
	if len(chunks) == 0 || header.Count != len(chunks) {
		return nil, apperrors.ErrCorruptState(chunksKey,
			fmt.Errorf("index holds %d vectors but %d chunks", header.Count, len(chunks)))
	}

	if header.Model != embedder.ModelName() {
		return nil, apperrors.ErrEmbeddingMismatch(header.Model, embedder.ModelName())
	}
	if want := embedder.Dimension(); want > 0 && want != header.Dim {
		return nil, dimensionMismatch(header.Dim, want)
	}

	if flat == nil {
		flat, err = reembed(ctx, embedder, chunks, header.Dim, o.batchSize)
		if err != nil {
			return nil, err
		}
	}

	return &Index{
		chunks:   chunks,
		flat:     flat,
		model:    header.Model,
		embedder: embedder,
	}, nil
}

func reembed(ctx context.Context, embedder services.Embedder, chunks []entities.TranscriptChunk, dim, batchSize int) (*vectorindex.Flat, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedAll(ctx, embedder, texts, batchSize)
	if err != nil {
		return nil, err
	}
	flat, err := vectorindex.NewFlat(dim)
	if err != nil {
		return nil, err
	}
	if err := flat.Add(vectors...); err != nil {
		return nil, dimensionMismatch(dim, len(vectors[0]))
	}
	return flat, nil
}

// corrupt reports a missing artifact as corrupt state; callers only load an
// index for a meeting whose directory exists.
func corrupt(key string, err error) error {
	if errors.Is(err, repositories.ErrArtifactNotFound) {
		return apperrors.ErrCorruptState(key, err)
	}
	return apperrors.ErrStorageFailed("read "+key, err)
}
