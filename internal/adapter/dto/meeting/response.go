package meeting

import "time"

// SummaryResponse represents the structured summary of a meeting
type SummaryResponse struct {
	Summary      string   `json:"summary"`
	ActionItems  []string `json:"action_items"`
	KeyDecisions []string `json:"key_decisions"`
	Topics       []string `json:"topics"`
}

// MeetingResponse represents a processed meeting
type MeetingResponse struct {
	MeetingID    string           `json:"meeting_id"`
	Duration     float64          `json:"duration"`
	Speakers     []string         `json:"speakers"`
	ChunkCount   int              `json:"chunk_count"`
	FailedChunks int              `json:"failed_chunks"`
	Summary      *SummaryResponse `json:"summary"`
	Location     string           `json:"location,omitempty"`
	ProcessedAt  time.Time        `json:"processed_at"`
}

// ChunkResponse represents one transcript chunk
type ChunkResponse struct {
	ChunkID  string   `json:"chunk_id"`
	Speaker  string   `json:"speaker"`
	Start    float64  `json:"start"`
	End      float64  `json:"end"`
	Text     string   `json:"text"`
	Language *string  `json:"language"`
	Context  string   `json:"context"`
	Distance *float32 `json:"distance,omitempty"`
}

// TranscriptResponse represents the full transcript of a meeting
type TranscriptResponse struct {
	MeetingID string          `json:"meeting_id"`
	Duration  float64         `json:"duration"`
	Speakers  []string        `json:"speakers"`
	Chunks    []ChunkResponse `json:"chunks"`
	CreatedAt time.Time       `json:"created_at"`
}

// AskResponse represents an answer and the chunks it cites
type AskResponse struct {
	MeetingID string          `json:"meeting_id"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Sources   []ChunkResponse `json:"sources"`
}

// MeetingListResponse represents the known meeting ids
type MeetingListResponse struct {
	Meetings []string `json:"meetings"`
	Count    int      `json:"count"`
}

// CatalogEntryResponse represents one catalog row
type CatalogEntryResponse struct {
	MeetingID       string    `json:"meeting_id"`
	DurationSeconds float64   `json:"duration_seconds"`
	Speakers        []string  `json:"speakers"`
	ChunkCount      int       `json:"chunk_count"`
	FailedChunks    int       `json:"failed_chunks"`
	Location        string    `json:"location"`
	EmbeddingModel  string    `json:"embedding_model"`
	ProcessedAt     time.Time `json:"processed_at"`
}
