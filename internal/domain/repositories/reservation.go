package repositories

import (
	"context"
	"time"
)

// IDReserver claims meeting ids so two runs cannot process the same id at
// once. A reservation expires after ttl if never released.
type IDReserver interface {
	// Reserve reports whether id was free and is now held by the caller.
	Reserve(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
}
