package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/pkg/media"
)

// Classifier tags transcribed text with a language code.
type Classifier interface {
	Classify(text string) string
}

// WhisperTranscriber transcribes audio windows with the Audio
// Transcriptions API. Each window is cut locally and uploaded as WAV.
type WhisperTranscriber struct {
	client     openai.Client
	model      string
	clipper    media.Clipper
	classifier Classifier
	retry      RetryPolicy
	logger     *zap.Logger
}

// NewWhisperTranscriber creates a transcriber. The classifier decides the
// returned language tag from the transcribed text.
func NewWhisperTranscriber(apiKey, model string, clipper media.Clipper, classifier Classifier, opts ...Option) *WhisperTranscriber {
	o := newClientOptions(opts)
	return &WhisperTranscriber{
		client:     newOpenAIClient(apiKey, o),
		model:      model,
		clipper:    clipper,
		classifier: classifier,
		retry:      o.retry,
		logger:     o.logger,
	}
}

// Transcribe returns the text spoken in [start, end) and its language tag.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string, start, end float64) (string, string, error) {
	clip, err := w.clipper.Clip(ctx, audioPath, start, end)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract segment %.1f-%.1f: %w", start, end, err)
	}

	var text string
	err = retry(ctx, w.retry, w.logger, "openai.transcriptions", func() error {
		resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:           openai.File(bytes.NewReader(clip), "segment.wav", "audio/wav"),
			Model:          openai.AudioModel(w.model),
			ResponseFormat: openai.AudioResponseFormatVerboseJSON,
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("openai transcription failed: %w", err)
	}

	language := "unknown"
	if w.classifier != nil {
		language = w.classifier.Classify(text)
	}
	if w.logger != nil {
		w.logger.Debug("🎙️ Transcribed segment",
			zap.Float64("start", start),
			zap.Float64("end", end),
			zap.String("language", language),
			zap.Int("text_length", len(text)),
		)
	}
	return text, language, nil
}
