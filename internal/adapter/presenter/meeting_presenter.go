package presenter

import (
	"github.com/johnquangdev/meeting-rag/internal/adapter/dto/common"
	"github.com/johnquangdev/meeting-rag/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/usecase/qa"
)

// ToMeetingResponse converts a MeetingResult to MeetingResponse DTO
func ToMeetingResponse(r *entities.MeetingResult, location string) *meeting.MeetingResponse {
	if r == nil {
		return nil
	}

	response := &meeting.MeetingResponse{
		MeetingID:   r.MeetingID,
		Speakers:    []string{},
		Summary:     ToSummaryResponse(r.Summary),
		Location:    location,
		ProcessedAt: r.ProcessedAt,
	}
	if t := r.Transcript; t != nil {
		response.Duration = t.Duration
		response.Speakers = t.Speakers
		response.ChunkCount = len(t.Chunks)
		response.FailedChunks = t.FailedChunks()
	}
	return response
}

// ToSummaryResponse converts a SummaryResponse entity to its DTO
func ToSummaryResponse(s *entities.SummaryResponse) *meeting.SummaryResponse {
	if s == nil {
		return nil
	}
	normalized := entities.NewSummaryResponse(s.Summary, s.ActionItems, s.KeyDecisions, s.Topics)
	return &meeting.SummaryResponse{
		Summary:      normalized.Summary,
		ActionItems:  normalized.ActionItems,
		KeyDecisions: normalized.KeyDecisions,
		Topics:       normalized.Topics,
	}
}

// ToChunkResponse converts a TranscriptChunk to ChunkResponse DTO
func ToChunkResponse(c entities.TranscriptChunk) meeting.ChunkResponse {
	return meeting.ChunkResponse{
		ChunkID:  c.ChunkID,
		Speaker:  c.Speaker,
		Start:    c.Start,
		End:      c.End,
		Text:     c.Text,
		Language: c.Language,
		Context:  c.ContextString(),
	}
}

// ToTranscriptResponse converts a MeetingTranscript to TranscriptResponse DTO
func ToTranscriptResponse(t *entities.MeetingTranscript) *meeting.TranscriptResponse {
	if t == nil {
		return nil
	}
	chunks := make([]meeting.ChunkResponse, len(t.Chunks))
	for i, c := range t.Chunks {
		chunks[i] = ToChunkResponse(c)
	}
	return &meeting.TranscriptResponse{
		MeetingID: t.MeetingID,
		Duration:  t.Duration,
		Speakers:  t.Speakers,
		Chunks:    chunks,
		CreatedAt: t.CreatedAt,
	}
}

// ToAskResponse converts an AskResult to AskResponse DTO
func ToAskResponse(r *qa.AskResult) *meeting.AskResponse {
	sources := make([]meeting.ChunkResponse, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = ToChunkResponse(s.Chunk)
		distance := s.Distance
		sources[i].Distance = &distance
	}
	return &meeting.AskResponse{
		MeetingID: r.MeetingID,
		Question:  r.Question,
		Answer:    r.Answer,
		Sources:   sources,
	}
}

// ToCatalogListResponse converts catalog rows to a paginated list
func ToCatalogListResponse(records []*entities.MeetingRecord, total int64, page, pageSize int) *common.ListResponse {
	entries := make([]meeting.CatalogEntryResponse, len(records))
	for i, r := range records {
		entries[i] = meeting.CatalogEntryResponse{
			MeetingID:       r.ID,
			DurationSeconds: r.DurationSeconds,
			Speakers:        r.SpeakerList(),
			ChunkCount:      r.ChunkCount,
			FailedChunks:    r.FailedChunks,
			Location:        r.Location,
			EmbeddingModel:  r.EmbeddingModel,
			ProcessedAt:     r.ProcessedAt,
		}
	}
	return &common.ListResponse{
		Data:       entries,
		Pagination: common.NewPagination(page, pageSize, total),
	}
}
