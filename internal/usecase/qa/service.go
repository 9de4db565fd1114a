// Package qa answers questions about processed meetings, resolving them
// from the result cache or durable storage.
package qa

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-rag/internal/usecase/rag"
)

// DefaultTopK is used when neither the caller nor the config sets one.
const DefaultTopK = 5

// MaxTopK bounds retrieval per question.
const MaxTopK = 50

// Pipeline is the part of the orchestrator the QA path needs.
type Pipeline interface {
	Restore(ctx context.Context, meetingID string) (*entities.MeetingResult, *rag.Index, error)
	Answer(ctx context.Context, index *rag.Index, question string, topK int) (string, []rag.Match, error)
}

// MeetingLister lists the meetings in durable storage.
type MeetingLister interface {
	ListPrefixes(ctx context.Context) ([]string, error)
}

// Service resolves meetings (cache, then storage) and answers questions.
type Service struct {
	pipeline    Pipeline
	cache       *pipeline.ResultCache
	lister      MeetingLister
	defaultTopK int
	restores    singleflight.Group
	logger      *zap.Logger
}

// NewService creates a QA service. defaultTopK <= 0 uses DefaultTopK.
func NewService(p Pipeline, cache *pipeline.ResultCache, lister MeetingLister, defaultTopK int, logger *zap.Logger) *Service {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Service{
		pipeline:    p,
		cache:       cache,
		lister:      lister,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

// Ask answers params.Question from the meeting's most relevant chunks.
// Calls are independent; nothing is remembered between them.
func (s *Service) Ask(ctx context.Context, params AskParams) (*AskResult, error) {
	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, apperrors.ErrValidationFailed(entities.ErrEmptyQuestion)
	}
	topK := params.TopK
	if topK == 0 {
		topK = s.defaultTopK
	}
	if topK < 0 || topK > MaxTopK {
		return nil, apperrors.ErrValidationFailed(entities.ErrInvalidTopK)
	}

	_, index, err := s.resolve(ctx, params.MeetingID)
	if err != nil {
		return nil, err
	}

	answer, matches, err := s.pipeline.Answer(ctx, index, question, topK)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to answer question",
				zap.String("meeting_id", params.MeetingID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	sources := make([]SourceReference, len(matches))
	for i, m := range matches {
		sources[i] = SourceReference{Chunk: m.Chunk, Distance: m.Distance}
	}

	if s.logger != nil {
		s.logger.Info("💬 Question answered",
			zap.String("meeting_id", params.MeetingID),
			zap.Int("top_k", topK),
			zap.Int("sources", len(sources)),
		)
	}
	return &AskResult{
		MeetingID: params.MeetingID,
		Question:  question,
		Answer:    answer,
		Sources:   sources,
	}, nil
}

// Get returns the processed result of a meeting.
func (s *Service) Get(ctx context.Context, meetingID string) (*entities.MeetingResult, error) {
	result, _, err := s.resolve(ctx, meetingID)
	return result, err
}

// List returns the ids of every known meeting, cached or stored, sorted.
func (s *Service) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, id := range s.cache.List() {
		seen[id] = struct{}{}
	}
	if s.lister != nil {
		stored, err := s.lister.ListPrefixes(ctx)
		if err != nil {
			return nil, apperrors.ErrStorageFailed("list", err)
		}
		for _, id := range stored {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type resolved struct {
	result *entities.MeetingResult
	index  *rag.Index
}

// resolve looks meetingID up in the cache and falls back to restoring it
// from storage, caching what it restores. Concurrent misses for the same id
// share one restore.
func (s *Service) resolve(ctx context.Context, meetingID string) (*entities.MeetingResult, *rag.Index, error) {
	if !entities.ValidMeetingID(meetingID) {
		return nil, nil, apperrors.ErrMeetingNotFound(meetingID)
	}
	if result, index, ok := s.cache.Lookup(meetingID); ok {
		return result, index, nil
	}

	v, err, _ := s.restores.Do(meetingID, func() (interface{}, error) {
		if result, index, ok := s.cache.Lookup(meetingID); ok {
			return resolved{result: result, index: index}, nil
		}
		result, index, err := s.pipeline.Restore(context.WithoutCancel(ctx), meetingID)
		if err != nil {
			return nil, err
		}
		s.cache.Store(meetingID, result, index)
		if s.logger != nil {
			s.logger.Info("📂 Meeting loaded from storage",
				zap.String("meeting_id", meetingID),
				zap.Int("chunks", index.Len()),
			)
		}
		return resolved{result: result, index: index}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	r := v.(resolved)
	return r.result, r.index, nil
}
