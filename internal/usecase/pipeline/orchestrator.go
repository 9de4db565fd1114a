// Package pipeline runs the meeting processing stages (diarize, transcribe,
// index, summarize) and persists and restores their results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
	"github.com/johnquangdev/meeting-rag/internal/usecase/rag"
	"github.com/johnquangdev/meeting-rag/internal/usecase/summary"
	"github.com/johnquangdev/meeting-rag/pkg/config"
	"github.com/johnquangdev/meeting-rag/pkg/jobcontext"
)

// Stage names reported in StageFailure errors and logs.
const (
	StageDiarize    = "diarize"
	StageTranscribe = "transcribe"
	StageIndex      = "index"
	StageSummarize  = "summarize"
	StageAnswer     = "answer"
)

const progressEvery = 10

// ErrSegmentFailed wraps the cause of a single segment's transcription
// failure. It is logged, never returned.
var ErrSegmentFailed = errors.New("segment transcription failed")

// Config tunes a pipeline run.
type Config struct {
	TranscribeConcurrency int
	DiarizeTimeout        time.Duration
	SegmentTimeout        time.Duration
	EmbedTimeout          time.Duration
	SummarizeTimeout      time.Duration
	AnswerTimeout         time.Duration
	EmbedBatchSize        int
	PersistVectors        bool
	ReservationTTL        time.Duration
}

// DefaultConfig mirrors the PIPELINE_* defaults.
func DefaultConfig() Config {
	return Config{
		TranscribeConcurrency: 4,
		DiarizeTimeout:        30 * time.Minute,
		SegmentTimeout:        2 * time.Minute,
		EmbedTimeout:          5 * time.Minute,
		SummarizeTimeout:      5 * time.Minute,
		AnswerTimeout:         2 * time.Minute,
		EmbedBatchSize:        rag.DefaultBatchSize,
		PersistVectors:        true,
		ReservationTTL:        2 * time.Hour,
	}
}

// ConfigFrom converts the loaded PIPELINE_* settings.
func ConfigFrom(p config.PipelineConfig) Config {
	return Config{
		TranscribeConcurrency: p.TranscribeConcurrency,
		DiarizeTimeout:        p.DiarizeTimeout,
		SegmentTimeout:        p.SegmentTimeout,
		EmbedTimeout:          p.EmbedTimeout,
		SummarizeTimeout:      p.SummarizeTimeout,
		AnswerTimeout:         p.AnswerTimeout,
		EmbedBatchSize:        p.EmbedBatchSize,
		PersistVectors:        p.PersistVectors,
		ReservationTTL:        p.ReservationTTL,
	}
}

// Dependencies are the collaborators and stores an Orchestrator runs with.
// Cache and Catalog are optional.
type Dependencies struct {
	Diarizer    services.Diarizer
	Transcriber services.Transcriber
	Embedder    services.Embedder
	Summarizer  services.Summarizer
	Store       repositories.ArtifactRepository
	Reserver    repositories.IDReserver
	Cache       *ResultCache
	Catalog     repositories.MeetingRepository
}

// Orchestrator sequences the pipeline stages for one meeting at a time per
// call. Calls for different meetings may run concurrently.
type Orchestrator struct {
	diarizer    services.Diarizer
	transcriber services.Transcriber
	embedder    services.Embedder
	summarizer  services.Summarizer
	store       repositories.ArtifactRepository
	reserver    repositories.IDReserver
	cache       *ResultCache
	catalog     repositories.MeetingRepository
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an orchestrator.
func New(deps Dependencies, cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Diarizer == nil:
		return nil, errors.New("pipeline: diarizer is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Embedder == nil:
		return nil, errors.New("pipeline: embedder is required")
	case deps.Summarizer == nil:
		return nil, errors.New("pipeline: summarizer is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: artifact store is required")
	case deps.Reserver == nil:
		return nil, errors.New("pipeline: id reserver is required")
	}
	if cfg.TranscribeConcurrency < 1 {
		cfg.TranscribeConcurrency = 1
	}
	if cfg.EmbedBatchSize < 1 {
		cfg.EmbedBatchSize = rag.DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		diarizer:    deps.Diarizer,
		transcriber: deps.Transcriber,
		embedder:    deps.Embedder,
		summarizer:  deps.Summarizer,
		store:       deps.Store,
		reserver:    deps.Reserver,
		cache:       deps.Cache,
		catalog:     deps.Catalog,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Embedder returns the embedder indexes are built and restored with.
func (o *Orchestrator) Embedder() services.Embedder {
	return o.embedder
}

// Cache returns the result cache, or nil when none is configured.
func (o *Orchestrator) Cache() *ResultCache {
	return o.cache
}

// Process runs every stage for the audio at audioPath. An empty meetingID
// generates one. The id is reserved for the duration of the run.
func (o *Orchestrator) Process(ctx context.Context, audioPath, meetingID string) (*entities.MeetingResult, *rag.Index, error) {
	meetingID, err := o.prepare(audioPath, meetingID)
	if err != nil {
		return nil, nil, err
	}
	release, err := o.reserve(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	return o.run(ctx, audioPath, meetingID)
}

// Ingest processes the audio, persists the artifacts and makes the result
// available to the cache and catalog. The id stays reserved until the
// artifacts are written.
func (o *Orchestrator) Ingest(ctx context.Context, audioPath, meetingID string) (*entities.MeetingResult, string, error) {
	meetingID, err := o.prepare(audioPath, meetingID)
	if err != nil {
		return nil, "", err
	}
	release, err := o.reserve(ctx, meetingID)
	if err != nil {
		return nil, "", err
	}
	defer release()

	result, index, err := o.run(ctx, audioPath, meetingID)
	if err != nil {
		return nil, "", err
	}

	location, err := o.Persist(ctx, meetingID, result, index)
	if err != nil {
		return nil, "", err
	}

	if o.cache != nil {
		o.cache.Store(meetingID, result, index)
	}
	if o.catalog != nil {
		record := entities.NewMeetingRecord(result, location, index.ModelName())
		if err := o.catalog.Upsert(ctx, record); err != nil {
			o.logger.Warn("⚠️ Failed to record meeting in catalog",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
		}
	}
	return result, location, nil
}

func (o *Orchestrator) prepare(audioPath, meetingID string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", apperrors.ErrValidationFailed(entities.ErrEmptyAudioPath)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", apperrors.ErrAudioNotFound(audioPath, err)
	}
	if info.IsDir() {
		return "", apperrors.ErrAudioNotFound(audioPath, fmt.Errorf("%s is a directory", audioPath))
	}

	if meetingID == "" {
		return entities.NewMeetingID(), nil
	}
	if !entities.ValidMeetingID(meetingID) {
		return "", apperrors.ErrValidationFailed(entities.ErrInvalidID)
	}
	return meetingID, nil
}

// reserve claims meetingID and rejects ids that are already persisted. The
// returned func releases the claim.
func (o *Orchestrator) reserve(ctx context.Context, meetingID string) (func(), error) {
	ok, err := o.reserver.Reserve(ctx, meetingID, o.cfg.ReservationTTL)
	if err != nil {
		return nil, apperrors.ErrCacheFailed("reserve meeting id", err)
	}
	if !ok {
		return nil, apperrors.ErrMeetingAlreadyExists(meetingID)
	}

	release := func() {
		if err := o.reserver.Release(context.WithoutCancel(ctx), meetingID); err != nil {
			o.logger.Warn("⚠️ Failed to release meeting id",
				zap.String("meeting_id", meetingID),
				zap.Error(err),
			)
		}
	}

	exists, err := o.store.Exists(ctx, meetingID)
	if err != nil {
		release()
		return nil, apperrors.ErrStorageFailed("exists", err)
	}
	if exists {
		release()
		return nil, apperrors.ErrMeetingAlreadyExists(meetingID)
	}
	return release, nil
}

func (o *Orchestrator) run(ctx context.Context, audioPath, meetingID string) (*entities.MeetingResult, *rag.Index, error) {
	started := time.Now()
	o.logger.Info("🎙️ Processing meeting",
		zap.String("meeting_id", meetingID),
		zap.String("audio_path", audioPath),
	)

	segments, err := o.diarize(ctx, audioPath, meetingID)
	if err != nil {
		return nil, nil, err
	}

	chunks := o.transcribeAll(ctx, audioPath, meetingID, segments)
	transcript := entities.NewMeetingTranscript(meetingID, segments, chunks, o.now().UTC())
	if failed := transcript.FailedChunks(); failed > 0 {
		o.logger.Warn("⚠️ Some segments failed to transcribe",
			zap.String("meeting_id", meetingID),
			zap.Int("failed", failed),
			zap.Int("total", len(chunks)),
		)
	}

	index, err := o.buildIndex(ctx, meetingID, transcript.Chunks)
	if err != nil {
		return nil, nil, err
	}

	summaryResp, err := o.summarize(ctx, meetingID, transcript)
	if err != nil {
		return nil, nil, err
	}

	result := &entities.MeetingResult{
		MeetingID:   meetingID,
		Transcript:  transcript,
		Summary:     summaryResp,
		ProcessedAt: o.now().UTC(),
	}

	o.logger.Info("✅ Meeting processed",
		zap.String("meeting_id", meetingID),
		zap.Int("chunks", len(transcript.Chunks)),
		zap.Strings("speakers", transcript.Speakers),
		zap.Float64("duration", transcript.Duration),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, index, nil
}

func (o *Orchestrator) diarize(ctx context.Context, audioPath, meetingID string) ([]entities.SpeakerSegment, error) {
	stageCtx, cancel := jobcontext.StageBegin(ctx, meetingID, StageDiarize, o.cfg.DiarizeTimeout)
	defer cancel()

	raw, err := callStage(stageCtx, func(ctx context.Context) ([]entities.SpeakerSegment, error) {
		return o.diarizer.Diarize(ctx, audioPath)
	})
	if err != nil {
		o.logger.Error("❌ Diarization failed",
			zap.String("meeting_id", meetingID),
			zap.String("stage", StageDiarize),
			zap.Error(err),
		)
		return nil, apperrors.ErrStageFailed(StageDiarize, err)
	}

	segments := make([]entities.SpeakerSegment, 0, len(raw))
	for i, seg := range raw {
		if !seg.Valid() {
			o.logger.Warn("⚠️ Dropping empty segment",
				zap.String("meeting_id", meetingID),
				zap.Int("segment_index", i),
				zap.Float64("start", seg.Start),
				zap.Float64("end", seg.End),
			)
			continue
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	o.logger.Info("🗣️ Diarization complete",
		zap.String("meeting_id", meetingID),
		zap.Int("segments", len(segments)),
		zap.Duration("elapsed", jobcontext.Elapsed(stageCtx)),
	)
	return segments, nil
}

// transcribeAll returns one chunk per segment in segment order. Failed
// segments become placeholder chunks; they never stop their siblings.
func (o *Orchestrator) transcribeAll(ctx context.Context, audioPath, meetingID string, segments []entities.SpeakerSegment) []entities.TranscriptChunk {
	chunks := make([]entities.TranscriptChunk, len(segments))
	total := len(segments)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(o.cfg.TranscribeConcurrency)
	for i, seg := range segments {
		g.Go(func() error {
			chunks[i] = o.transcribeSegment(ctx, audioPath, meetingID, i, seg)
			if n := done.Add(1); n%progressEvery == 0 || int(n) == total {
				o.logger.Info("📝 Transcription progress",
					zap.String("meeting_id", meetingID),
					zap.Int64("done", n),
					zap.Int("total", total),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return chunks
}

func (o *Orchestrator) transcribeSegment(ctx context.Context, audioPath, meetingID string, i int, seg entities.SpeakerSegment) entities.TranscriptChunk {
	segCtx, cancel := jobcontext.StageBegin(ctx, meetingID, StageTranscribe, o.cfg.SegmentTimeout)
	defer cancel()
	segCtx = jobcontext.WithSegment(segCtx, i)

	type transcription struct {
		text, language string
	}
	out, err := callStage(segCtx, func(ctx context.Context) (transcription, error) {
		text, language, err := o.transcriber.Transcribe(ctx, audioPath, seg.Start, seg.End)
		return transcription{text: text, language: language}, err
	})
	if err != nil {
		md := jobcontext.GetStageMetadata(segCtx)
		o.logger.Warn("⚠️ Segment transcription failed",
			zap.String("meeting_id", md.MeetingID),
			zap.String("stage", md.Stage),
			zap.Int("segment_index", md.SegmentIndex),
			zap.String("chunk_id", entities.ChunkID(i)),
			zap.Duration("elapsed", time.Since(md.StartTime)),
			zap.Error(fmt.Errorf("%w: %w", ErrSegmentFailed, err)),
		)
		return entities.NewFailedChunk(i, seg)
	}
	return entities.NewChunk(i, seg, strings.TrimSpace(out.text), out.language)
}

func (o *Orchestrator) buildIndex(ctx context.Context, meetingID string, chunks []entities.TranscriptChunk) (*rag.Index, error) {
	stageCtx, cancel := jobcontext.StageBegin(ctx, meetingID, StageIndex, o.cfg.EmbedTimeout)
	defer cancel()

	index, err := callStage(stageCtx, func(ctx context.Context) (*rag.Index, error) {
		return rag.Build(ctx, o.embedder, chunks, rag.WithBatchSize(o.cfg.EmbedBatchSize))
	})
	if err != nil {
		o.logger.Error("❌ Index build failed",
			zap.String("meeting_id", meetingID),
			zap.String("stage", StageIndex),
			zap.Error(err),
		)
		return nil, apperrors.ErrStageFailed(StageIndex, err)
	}
	return index, nil
}

func (o *Orchestrator) summarize(ctx context.Context, meetingID string, transcript *entities.MeetingTranscript) (*entities.SummaryResponse, error) {
	stageCtx, cancel := jobcontext.StageBegin(ctx, meetingID, StageSummarize, o.cfg.SummarizeTimeout)
	defer cancel()

	resp, err := callStage(stageCtx, func(ctx context.Context) (*entities.SummaryResponse, error) {
		return o.summarizer.Summarize(ctx, transcript)
	})
	if err == nil && resp == nil {
		err = errors.New("summarizer returned no summary")
	}
	if err != nil {
		o.logger.Error("❌ Summarization failed",
			zap.String("meeting_id", meetingID),
			zap.String("stage", StageSummarize),
			zap.Error(err),
		)
		return nil, apperrors.ErrStageFailed(StageSummarize, err)
	}
	return resp, nil
}

// Answer retrieves the topK chunks nearest to question and asks the
// summarizer to answer from them. It returns the answer and the cited
// matches.
func (o *Orchestrator) Answer(ctx context.Context, index *rag.Index, question string, topK int) (string, []rag.Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, apperrors.ErrValidationFailed(entities.ErrEmptyQuestion)
	}
	if topK <= 0 {
		return "", nil, apperrors.ErrValidationFailed(entities.ErrInvalidTopK)
	}
	if index == nil {
		return "", nil, apperrors.ErrInvalidArgument("index is required")
	}

	embedCtx, cancelEmbed := context.WithTimeout(ctx, o.embedTimeout())
	matches, err := callStage(embedCtx, func(ctx context.Context) ([]rag.Match, error) {
		return index.QueryByText(ctx, question, topK)
	})
	cancelEmbed()
	if err != nil {
		return "", nil, asExternal("embed", err)
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.answerTimeout())
	defer cancel()
	contextText := summary.BuildContext(rag.ChunksOf(matches))
	answer, err := callStage(stageCtx, func(ctx context.Context) (string, error) {
		return o.summarizer.AnswerQuestion(ctx, contextText, question)
	})
	if err != nil {
		return "", nil, asExternal(StageAnswer, err)
	}
	return answer, matches, nil
}

// asExternal keeps AppErrors as they are and reports anything else as a
// failed call to service.
func asExternal(service string, err error) error {
	var appErr apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrExternalAPIFailed(service, err)
}

func (o *Orchestrator) answerTimeout() time.Duration {
	if o.cfg.AnswerTimeout > 0 {
		return o.cfg.AnswerTimeout
	}
	return DefaultConfig().AnswerTimeout
}

func (o *Orchestrator) embedTimeout() time.Duration {
	if o.cfg.EmbedTimeout > 0 {
		return o.cfg.EmbedTimeout
	}
	return DefaultConfig().EmbedTimeout
}

// Stage returns the pipeline stage recorded in a StageFailure, or "" when
// err is not one.
func Stage(err error) string {
	var appErr apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrorCode_PIPELINE_STAGE_FAILED {
		return ""
	}
	return appErr.Detail("stage")
}

// callStage runs fn under ctx and returns as soon as ctx is done, even if
// fn ignores cancellation. Panics in fn are returned as errors.
func callStage[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		var out outcome
		out.err = jobcontext.Run(ctx, func(ctx context.Context) error {
			var err error
			out.value, err = fn(ctx)
			return err
		})
		ch <- out
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
