package entities

import (
	"time"

	"gorm.io/datatypes"
)

// MeetingRecord is the catalog row written for every persisted meeting.
type MeetingRecord struct {
	ID              string                       `json:"id" gorm:"type:varchar(64);primary_key"`
	DurationSeconds float64                      `json:"duration_seconds" gorm:"not null;default:0"`
	Speakers        datatypes.JSONType[[]string] `json:"speakers" gorm:"type:jsonb;not null"`
	ChunkCount      int                          `json:"chunk_count" gorm:"not null;default:0"`
	FailedChunks    int                          `json:"failed_chunks" gorm:"not null;default:0"`
	Location        string                       `json:"location" gorm:"type:text;not null"`
	EmbeddingModel  string                       `json:"embedding_model" gorm:"type:varchar(128)"`
	ProcessedAt     time.Time                    `json:"processed_at" gorm:"not null;index"`
	CreatedAt       time.Time                    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time                    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MeetingRecord) TableName() string {
	return "meetings"
}

// NewMeetingRecord summarizes a result for the catalog.
func NewMeetingRecord(result *MeetingResult, location, embeddingModel string) *MeetingRecord {
	record := &MeetingRecord{
		ID:             result.MeetingID,
		Speakers:       datatypes.NewJSONType([]string{}),
		Location:       location,
		EmbeddingModel: embeddingModel,
		ProcessedAt:    result.ProcessedAt,
	}
	if t := result.Transcript; t != nil {
		record.DurationSeconds = t.Duration
		record.Speakers = datatypes.NewJSONType(t.Speakers)
		record.ChunkCount = len(t.Chunks)
		record.FailedChunks = t.FailedChunks()
	}
	return record
}

// SpeakerList returns the stored speaker labels.
func (r *MeetingRecord) SpeakerList() []string {
	return r.Speakers.Data()
}
