package pipeline

import (
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-rag/internal/usecase/rag"
)

type cachedMeeting struct {
	result *entities.MeetingResult
	index  *rag.Index
}

// ResultCache keeps recently used meetings in memory, keyed by meeting id.
// Entries are replaced whole, never mutated.
type ResultCache struct {
	store *cache.MemoryStore[cachedMeeting]
}

// NewResultCache creates a cache bounded by opts.
func NewResultCache(opts cache.Options) *ResultCache {
	return &ResultCache{store: cache.NewMemoryStore[cachedMeeting](opts)}
}

// Store records the result and index for meetingID. Last write wins.
func (c *ResultCache) Store(meetingID string, result *entities.MeetingResult, index *rag.Index) {
	c.store.Set(meetingID, cachedMeeting{result: result, index: index})
}

// Get returns the cached result for meetingID.
func (c *ResultCache) Get(meetingID string) (*entities.MeetingResult, bool) {
	entry, ok := c.store.Get(meetingID)
	return entry.result, ok
}

// GetIndex returns the cached index for meetingID.
func (c *ResultCache) GetIndex(meetingID string) (*rag.Index, bool) {
	entry, ok := c.store.Get(meetingID)
	return entry.index, ok
}

// Lookup returns both halves of a cached entry.
func (c *ResultCache) Lookup(meetingID string) (*entities.MeetingResult, *rag.Index, bool) {
	entry, ok := c.store.Get(meetingID)
	return entry.result, entry.index, ok
}

// List returns the cached meeting ids, sorted.
func (c *ResultCache) List() []string {
	return c.store.Keys()
}

// Delete drops meetingID from the cache.
func (c *ResultCache) Delete(meetingID string) {
	c.store.Delete(meetingID)
}

// Close stops the expiry sweeper.
func (c *ResultCache) Close() {
	c.store.Close()
}
