package repositories

import (
	"context"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

// MeetingRepository defines the interface for the meeting catalog
type MeetingRepository interface {
	// Upsert inserts the record or replaces the row with the same id
	Upsert(ctx context.Context, record *entities.MeetingRecord) error

	// FindByID returns nil, nil when no row exists
	FindByID(ctx context.Context, id string) (*entities.MeetingRecord, error)

	// List returns records, newest first
	List(ctx context.Context, limit, offset int) ([]*entities.MeetingRecord, int64, error)

	// Delete removes a record
	Delete(ctx context.Context, id string) error
}
