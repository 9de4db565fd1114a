package services

import (
	"context"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

// Diarizer partitions an audio file into speaker turns.
type Diarizer interface {
	// Diarize returns segments in non-decreasing start order. A missing or
	// unreadable audio file is reported as a not-found error.
	Diarize(ctx context.Context, audioPath string) ([]entities.SpeakerSegment, error)
}

// Transcriber converts one time window of an audio file to text.
type Transcriber interface {
	// Transcribe returns the text and a language tag ("mixed" and "unknown"
	// are valid tags).
	Transcribe(ctx context.Context, audioPath string, start, end float64) (text string, language string, err error)
}

// Embedder maps texts to fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// ModelName identifies the model; persisted indexes are stamped with it.
	ModelName() string
	// Dimension is the configured vector size, or 0 when only known after
	// the first call.
	Dimension() int
}

// Summarizer produces meeting summaries and answers questions from context.
type Summarizer interface {
	Summarize(ctx context.Context, transcript *entities.MeetingTranscript) (*entities.SummaryResponse, error)
	AnswerQuestion(ctx context.Context, contextText, question string) (string, error)
}

// LanguageClassifier tags text with a language code based on its content.
type LanguageClassifier interface {
	Classify(text string) string
}
