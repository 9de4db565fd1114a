package repositories

import (
	"context"
	"errors"
	"path"
	"sort"
)

// ErrArtifactNotFound is returned by Get when the key does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactReader reads a single artifact by key.
type ArtifactReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ArtifactWriter writes a single artifact by key.
type ArtifactWriter interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ArtifactRepository stores the persisted artifacts of meetings. Keys are
// slash-separated and rooted at a meeting id ("<id>/transcript.json").
type ArtifactRepository interface {
	ArtifactReader

	// PutAll replaces everything under prefix with objects. Implementations
	// make the replacement as close to atomic as the backend allows.
	PutAll(ctx context.Context, prefix string, objects map[string][]byte) error
	// Exists reports whether any artifact is stored under prefix.
	Exists(ctx context.Context, prefix string) (bool, error)
	// ListPrefixes returns the top-level prefixes (meeting ids), sorted.
	ListPrefixes(ctx context.Context) ([]string, error)
	// DeletePrefix removes every artifact under prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Location describes where prefix lives, for logs and responses.
	Location(prefix string) string
}

// Batch collects artifacts in memory so they can be written with PutAll.
type Batch struct {
	objects map[string][]byte
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{objects: make(map[string][]byte)}
}

// Put implements ArtifactWriter.
func (b *Batch) Put(_ context.Context, key string, data []byte) error {
	b.objects[path.Clean(key)] = data
	return nil
}

// Get implements ArtifactReader over the batch contents.
func (b *Batch) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := b.objects[path.Clean(key)]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return data, nil
}

// Objects returns the collected artifacts.
func (b *Batch) Objects() map[string][]byte {
	return b.objects
}

// Keys returns the collected keys, sorted.
func (b *Batch) Keys() []string {
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
