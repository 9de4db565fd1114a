package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
)

// MeetingRepository handles catalog rows in the meetings table
type MeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Upsert inserts a record, overwriting every column on id conflict
func (r *MeetingRepository) Upsert(ctx context.Context, record *entities.MeetingRecord) error {
	if record == nil {
		return errors.New("meeting record cannot be nil")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"duration_seconds",
				"speakers",
				"chunk_count",
				"failed_chunks",
				"location",
				"embedding_model",
				"processed_at",
				"updated_at",
			}),
		}).
		Create(record).Error
}

// FindByID retrieves a record by meeting id
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*entities.MeetingRecord, error) {
	var record entities.MeetingRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// List retrieves records with pagination, newest first
func (r *MeetingRepository) List(ctx context.Context, limit, offset int) ([]*entities.MeetingRecord, int64, error) {
	var (
		records []*entities.MeetingRecord
		total   int64
	)

	query := r.db.WithContext(ctx).Model(&entities.MeetingRecord{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if err := query.
		Order("processed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete removes a record
func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.MeetingRecord{}).Error
}

var _ repositories.MeetingRepository = (*MeetingRepository)(nil)
