package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
)

// keywordEmbedder places each text on an axis chosen by the first keyword it
// contains, so nearest-neighbour results are predictable.
type keywordEmbedder struct {
	model    string
	keywords []string

	mu     sync.Mutex
	calls  int
	inputs int
	fail   error
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{model: "test-embed", keywords: keywords}
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.inputs += len(texts)
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("input[%d] is empty", i)
		}
		v := make([]float32, len(e.keywords)+1)
		v[len(e.keywords)] = 1
		for k, kw := range e.keywords {
			if containsWord(text, kw) {
				v[k] = 10
				v[len(e.keywords)] = 0
				break
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) ModelName() string { return e.model }
func (e *keywordEmbedder) Dimension() int    { return len(e.keywords) + 1 }

func containsWord(text, word string) bool {
	for i := 0; i+len(word) <= len(text); i++ {
		if text[i:i+len(word)] == word {
			return true
		}
	}
	return false
}

func chunk(i int, speaker, text string) entities.TranscriptChunk {
	return entities.NewChunk(i, entities.SpeakerSegment{
		Speaker: speaker,
		Start:   float64(i) * 10,
		End:     float64(i)*10 + 9,
	}, text, "en")
}

func sampleChunks() []entities.TranscriptChunk {
	return []entities.TranscriptChunk{
		chunk(0, "SPEAKER_00", "Let's review the budget for Q3."),
		chunk(1, "SPEAKER_01", "The launch date moves to October."),
		chunk(2, "SPEAKER_00", "Hiring plan needs two engineers."),
	}
}

func TestBuild_RejectsEmpty(t *testing.T) {
	_, err := Build(context.Background(), newKeywordEmbedder("x"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrNoChunks)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
}

func TestBuild_BatchesEmbeddingCalls(t *testing.T) {
	emb := newKeywordEmbedder("budget")
	chunks := make([]entities.TranscriptChunk, 7)
	for i := range chunks {
		chunks[i] = chunk(i, "S", fmt.Sprintf("line %d", i))
	}

	ix, err := Build(context.Background(), emb, chunks, WithBatchSize(3))
	require.NoError(t, err)
	assert.Equal(t, 7, ix.Len())
	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 7, emb.inputs)
}

func TestBuild_EmbedderError(t *testing.T) {
	emb := newKeywordEmbedder("budget")
	emb.fail = errors.New("rate limited")

	_, err := Build(context.Background(), emb, sampleChunks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestBuild_BlankTextKeepsChunk(t *testing.T) {
	chunks := sampleChunks()
	chunks[1].Text = ""
	chunks[2].Text = "   "

	ix, err := Build(context.Background(), newKeywordEmbedder("budget"), chunks)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, chunks, ix.Chunks())
}

func TestQueryByText_FindsRelevantChunk(t *testing.T) {
	ix, err := Build(context.Background(), newKeywordEmbedder("budget", "launch", "Hiring"), sampleChunks())
	require.NoError(t, err)

	matches, err := ix.QueryByText(context.Background(), "what about the launch?", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk_0001", matches[0].Chunk.ChunkID)
	assert.Equal(t, float32(0), matches[0].Distance)
}

func TestQuery_TopKBounds(t *testing.T) {
	ix, err := Build(context.Background(), newKeywordEmbedder("budget"), sampleChunks())
	require.NoError(t, err)

	got, err := ix.Query([]float32{0, 1}, 50)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = ix.Query([]float32{0, 1}, 0)
	assert.ErrorIs(t, err, entities.ErrInvalidTopK)

	_, err = ix.Query([]float32{0, 1, 2}, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_EMBEDDING_MISMATCH))
}

func TestQuery_ResultsAreSubsetOrderedByDistance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(rt, "n")
		chunks := make([]entities.TranscriptChunk, n)
		for i := range chunks {
			chunks[i] = chunk(i, "S", rapid.SampledFrom([]string{"alpha", "beta", "gamma", "other"}).Draw(rt, "text"))
		}
		ix, err := Build(context.Background(), newKeywordEmbedder("alpha", "beta", "gamma"), chunks)
		require.NoError(rt, err)

		k := rapid.IntRange(1, 40).Draw(rt, "k")
		query := rapid.SliceOfN(rapid.Float32Range(-5, 5), 4, 4).Draw(rt, "q")
		matches, err := ix.Search(query, k)
		require.NoError(rt, err)

		want := k
		if n < k {
			want = n
		}
		require.Len(rt, matches, want)
		seen := map[string]bool{}
		for i, m := range matches {
			require.False(rt, seen[m.Chunk.ChunkID])
			seen[m.Chunk.ChunkID] = true
			require.Equal(rt, chunks[m.Position], m.Chunk)
			if i > 0 {
				require.LessOrEqual(rt, matches[i-1].Distance, m.Distance)
			}
		}
	})
}

func TestSaveLoad_WithVectors(t *testing.T) {
	ctx := context.Background()
	emb := newKeywordEmbedder("budget", "launch", "Hiring")
	ix, err := Build(ctx, emb, sampleChunks())
	require.NoError(t, err)

	batch := repositories.NewBatch()
	require.NoError(t, ix.Save(ctx, batch, "m1/rag_index", true))
	assert.Equal(t, []string{"m1/rag_index/chunks.json", "m1/rag_index/index.bin"}, batch.Keys())

	callsBefore := emb.calls
	loaded, err := Load(ctx, batch, "m1/rag_index", emb)
	require.NoError(t, err)
	assert.Equal(t, callsBefore, emb.calls, "vectors are read, not re-embedded")
	assert.Equal(t, ix.Chunks(), loaded.Chunks())

	q := []float32{0, 10, 0, 0}
	want, err := ix.Search(q, 3)
	require.NoError(t, err)
	got, err := loaded.Search(q, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoad_WithoutVectorsReembeds(t *testing.T) {
	ctx := context.Background()
	emb := newKeywordEmbedder("budget", "launch", "Hiring")
	ix, err := Build(ctx, emb, sampleChunks())
	require.NoError(t, err)

	batch := repositories.NewBatch()
	require.NoError(t, ix.Save(ctx, batch, "m1/rag_index", false))

	loaded, err := Load(ctx, batch, "m1/rag_index", emb)
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)

	matches, err := loaded.QueryByText(ctx, "Hiring", 1)
	require.NoError(t, err)
	assert.Equal(t, "chunk_0002", matches[0].Chunk.ChunkID)
}

func TestLoad_ModelMismatch(t *testing.T) {
	ctx := context.Background()
	ix, err := Build(ctx, newKeywordEmbedder("budget"), sampleChunks())
	require.NoError(t, err)
	batch := repositories.NewBatch()
	require.NoError(t, ix.Save(ctx, batch, "d", true))

	other := newKeywordEmbedder("budget")
	other.model = "another-model"
	_, err = Load(ctx, batch, "d", other)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_EMBEDDING_MISMATCH))
}

func TestLoad_CorruptArtifacts(t *testing.T) {
	ctx := context.Background()
	emb := newKeywordEmbedder("budget")
	ix, err := Build(ctx, emb, sampleChunks())
	require.NoError(t, err)

	t.Run("missing index", func(t *testing.T) {
		batch := repositories.NewBatch()
		_, err := Load(ctx, batch, "d", emb)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_CORRUPT_STATE))
	})

	t.Run("garbled index", func(t *testing.T) {
		batch := repositories.NewBatch()
		require.NoError(t, ix.Save(ctx, batch, "d", true))
		raw, _ := batch.Get(ctx, "d/index.bin")
		raw[len(raw)/2] ^= 0xff
		_, err := Load(ctx, batch, "d", emb)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_CORRUPT_STATE))
	})

	t.Run("chunk count differs", func(t *testing.T) {
		batch := repositories.NewBatch()
		require.NoError(t, ix.Save(ctx, batch, "d", true))
		require.NoError(t, batch.Put(ctx, "d/chunks.json", []byte(`[{"chunk_id":"chunk_0000","speaker":"S","start_time":0,"end_time":1,"text":"x","language":null}]`)))
		_, err := Load(ctx, batch, "d", emb)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_CORRUPT_STATE))
	})

	t.Run("chunks not json", func(t *testing.T) {
		batch := repositories.NewBatch()
		require.NoError(t, ix.Save(ctx, batch, "d", true))
		require.NoError(t, batch.Put(ctx, "d/chunks.json", []byte(`{`)))
		_, err := Load(ctx, batch, "d", emb)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_CORRUPT_STATE))
	})
}
