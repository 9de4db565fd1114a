package ai

import (
	"context"
	"sync"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
)

// Lazy constructs a value on first use. Concurrent first callers share a
// single initialization, and a failed initialization is returned to every
// caller.
type Lazy[T any] struct {
	once sync.Once
	init func() (T, error)
	val  T
	err  error
}

// NewLazy wraps init.
func NewLazy[T any](init func() (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the initialized value.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.val, l.err = l.init()
		l.init = nil
	})
	return l.val, l.err
}

type lazyDiarizer struct{ l *Lazy[services.Diarizer] }

// LazyDiarizer defers building a Diarizer until the first Diarize call.
func LazyDiarizer(init func() (services.Diarizer, error)) services.Diarizer {
	return lazyDiarizer{l: NewLazy(init)}
}

func (d lazyDiarizer) Diarize(ctx context.Context, audioPath string) ([]entities.SpeakerSegment, error) {
	impl, err := d.l.Get()
	if err != nil {
		return nil, err
	}
	return impl.Diarize(ctx, audioPath)
}

type lazyTranscriber struct{ l *Lazy[services.Transcriber] }

// LazyTranscriber defers building a Transcriber until first use.
func LazyTranscriber(init func() (services.Transcriber, error)) services.Transcriber {
	return lazyTranscriber{l: NewLazy(init)}
}

func (t lazyTranscriber) Transcribe(ctx context.Context, audioPath string, start, end float64) (string, string, error) {
	impl, err := t.l.Get()
	if err != nil {
		return "", "", err
	}
	return impl.Transcribe(ctx, audioPath, start, end)
}

type lazyEmbedder struct {
	l     *Lazy[services.Embedder]
	model string
	dim   int
}

// LazyEmbedder defers building an Embedder until the first Embed call.
// ModelName and Dimension answer from configuration without initializing.
func LazyEmbedder(model string, dim int, init func() (services.Embedder, error)) services.Embedder {
	return lazyEmbedder{l: NewLazy(init), model: model, dim: dim}
}

func (e lazyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	impl, err := e.l.Get()
	if err != nil {
		return nil, err
	}
	return impl.Embed(ctx, texts)
}

func (e lazyEmbedder) ModelName() string { return e.model }
func (e lazyEmbedder) Dimension() int    { return e.dim }

type lazySummarizer struct{ l *Lazy[services.Summarizer] }

// LazySummarizer defers building a Summarizer until first use.
func LazySummarizer(init func() (services.Summarizer, error)) services.Summarizer {
	return lazySummarizer{l: NewLazy(init)}
}

func (s lazySummarizer) Summarize(ctx context.Context, transcript *entities.MeetingTranscript) (*entities.SummaryResponse, error) {
	impl, err := s.l.Get()
	if err != nil {
		return nil, err
	}
	return impl.Summarize(ctx, transcript)
}

func (s lazySummarizer) AnswerQuestion(ctx context.Context, contextText, question string) (string, error) {
	impl, err := s.l.Get()
	if err != nil {
		return "", err
	}
	return impl.AnswerQuestion(ctx, contextText, question)
}
