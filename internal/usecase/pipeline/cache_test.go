package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-rag/internal/usecase/rag"
)

func TestResultCache(t *testing.T) {
	c := NewResultCache(cache.Options{MaxEntries: 2, Shards: 1})
	defer c.Close()

	index, err := rag.Build(context.Background(), newVocabEmbedder(), []entities.TranscriptChunk{
		entities.NewChunk(0, seg("A", 0, 1), "budget", "en"),
	})
	require.NoError(t, err)

	results := make([]*entities.MeetingResult, 3)
	for i := range results {
		results[i] = &entities.MeetingResult{MeetingID: fmt.Sprintf("meeting_%d", i)}
	}

	_, ok := c.Get("meeting_0")
	assert.False(t, ok)

	c.Store("meeting_0", results[0], index)
	c.Store("meeting_0", results[1], index)
	got, ok := c.Get("meeting_0")
	require.True(t, ok)
	assert.Same(t, results[1], got, "last write wins")

	gotIndex, ok := c.GetIndex("meeting_0")
	require.True(t, ok)
	assert.Same(t, index, gotIndex)

	c.Store("meeting_1", results[1], index)
	c.Store("meeting_2", results[2], index)
	assert.Equal(t, []string{"meeting_1", "meeting_2"}, c.List())

	c.Delete("meeting_1")
	assert.Equal(t, []string{"meeting_2"}, c.List())
}
