package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/internal/usecase/rag"
)

// Artifact names under a meeting's prefix.
const (
	TranscriptFile = "transcript.json"
	SummaryFile    = "summary.json"
	IndexDir       = "rag_index"
)

// Persist writes the transcript, summary and index of a meeting as one unit
// and returns where they were stored.
func (o *Orchestrator) Persist(ctx context.Context, meetingID string, result *entities.MeetingResult, index *rag.Index) (string, error) {
	if !entities.ValidMeetingID(meetingID) {
		return "", apperrors.ErrValidationFailed(entities.ErrInvalidID)
	}
	if result == nil || result.Transcript == nil || result.Summary == nil || index == nil {
		return "", apperrors.ErrInvalidArgument("result, transcript, summary and index are required")
	}

	batch := repositories.NewBatch()
	if err := putJSON(ctx, batch, path.Join(meetingID, TranscriptFile), result.Transcript); err != nil {
		return "", err
	}
	if err := putJSON(ctx, batch, path.Join(meetingID, SummaryFile), result.Summary); err != nil {
		return "", err
	}
	if err := index.Save(ctx, batch, path.Join(meetingID, IndexDir), o.cfg.PersistVectors); err != nil {
		return "", apperrors.ErrInternal(fmt.Errorf("failed to encode index: %w", err))
	}

	if err := o.store.PutAll(ctx, meetingID, batch.Objects()); err != nil {
		o.logger.Error("❌ Failed to persist meeting",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
		return "", apperrors.ErrStorageFailed("persist", err)
	}

	location := o.store.Location(meetingID)
	o.logger.Info("💾 Meeting persisted",
		zap.String("meeting_id", meetingID),
		zap.String("location", location),
		zap.Strings("artifacts", batch.Keys()),
	)
	return location, nil
}

func putJSON(ctx context.Context, w repositories.ArtifactWriter, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.ErrInternal(fmt.Errorf("failed to encode %s: %w", key, err))
	}
	return w.Put(ctx, key, data)
}

// Restore reads a persisted meeting back. An unknown id is NotFound; a
// meeting with a missing or undecodable artifact is CorruptState.
func (o *Orchestrator) Restore(ctx context.Context, meetingID string) (*entities.MeetingResult, *rag.Index, error) {
	if !entities.ValidMeetingID(meetingID) {
		return nil, nil, apperrors.ErrMeetingNotFound(meetingID)
	}

	exists, err := o.store.Exists(ctx, meetingID)
	if err != nil {
		return nil, nil, apperrors.ErrStorageFailed("exists", err)
	}
	if !exists {
		return nil, nil, apperrors.ErrMeetingNotFound(meetingID)
	}

	var transcript entities.MeetingTranscript
	if err := o.getJSON(ctx, path.Join(meetingID, TranscriptFile), &transcript); err != nil {
		return nil, nil, err
	}
	if transcript.MeetingID != meetingID {
		return nil, nil, apperrors.ErrCorruptState(TranscriptFile,
			fmt.Errorf("transcript belongs to %q", transcript.MeetingID))
	}

	var summaryResp entities.SummaryResponse
	if err := o.getJSON(ctx, path.Join(meetingID, SummaryFile), &summaryResp); err != nil {
		return nil, nil, err
	}

	loadCtx, cancel := context.WithTimeout(ctx, o.embedTimeout())
	index, err := callStage(loadCtx, func(ctx context.Context) (*rag.Index, error) {
		return rag.Load(ctx, o.store, path.Join(meetingID, IndexDir), o.embedder, rag.WithBatchSize(o.cfg.EmbedBatchSize))
	})
	cancel()
	if err != nil {
		return nil, nil, asExternal("embed", err)
	}
	if index.Len() != len(transcript.Chunks) {
		return nil, nil, apperrors.ErrCorruptState(IndexDir,
			fmt.Errorf("index has %d chunks, transcript has %d", index.Len(), len(transcript.Chunks)))
	}

	result := &entities.MeetingResult{
		MeetingID:   meetingID,
		Transcript:  &transcript,
		Summary:     entities.NewSummaryResponse(summaryResp.Summary, summaryResp.ActionItems, summaryResp.KeyDecisions, summaryResp.Topics),
		ProcessedAt: transcript.CreatedAt,
	}
	o.logger.Debug("📂 Meeting restored",
		zap.String("meeting_id", meetingID),
		zap.Int("chunks", index.Len()),
	)
	return result, index, nil
}

func (o *Orchestrator) getJSON(ctx context.Context, key string, v any) error {
	data, err := o.store.Get(ctx, key)
	if errors.Is(err, repositories.ErrArtifactNotFound) {
		return apperrors.ErrCorruptState(path.Base(key), err)
	}
	if err != nil {
		return apperrors.ErrStorageFailed("get "+path.Base(key), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.ErrCorruptState(path.Base(key), err)
	}
	return nil
}

// Delete removes a persisted meeting from the store, the cache and the
// catalog.
func (o *Orchestrator) Delete(ctx context.Context, meetingID string) error {
	if !entities.ValidMeetingID(meetingID) {
		return apperrors.ErrMeetingNotFound(meetingID)
	}
	exists, err := o.store.Exists(ctx, meetingID)
	if err != nil {
		return apperrors.ErrStorageFailed("exists", err)
	}
	if !exists {
		if o.cache != nil {
			o.cache.Delete(meetingID)
		}
		return apperrors.ErrMeetingNotFound(meetingID)
	}

	if err := o.store.DeletePrefix(ctx, meetingID); err != nil {
		return apperrors.ErrStorageFailed("delete", err)
	}
	if o.cache != nil {
		o.cache.Delete(meetingID)
	}
	if o.catalog != nil {
		if err := o.catalog.Delete(ctx, meetingID); err != nil {
			o.logger.Warn("⚠️ Failed to delete meeting from catalog",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
		}
	}
	o.logger.Info("🗑️ Meeting deleted", zap.String("meeting_id", meetingID))
	return nil
}
