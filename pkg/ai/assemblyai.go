package ai

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

// SpeakerPrefix is prepended to AssemblyAI speaker labels ("A" -> "SPEAKER_A").
const SpeakerPrefix = "SPEAKER_"

// transcriptAPI is the part of the AssemblyAI SDK the diarizer uses.
type transcriptAPI interface {
	Upload(ctx context.Context, data io.Reader) (string, error)
	TranscribeFromURL(ctx context.Context, audioURL string, params *aai.TranscriptOptionalParams) (aai.Transcript, error)
}

type sdkTranscripts struct {
	client *aai.Client
}

func (s sdkTranscripts) Upload(ctx context.Context, data io.Reader) (string, error) {
	return s.client.Upload(ctx, data)
}

func (s sdkTranscripts) TranscribeFromURL(ctx context.Context, audioURL string, params *aai.TranscriptOptionalParams) (aai.Transcript, error) {
	return s.client.Transcripts.TranscribeFromURL(ctx, audioURL, params)
}

// AssemblyAIDiarizer uploads a recording and turns AssemblyAI speaker
// utterances into speaker segments.
type AssemblyAIDiarizer struct {
	api    transcriptAPI
	retry  RetryPolicy
	logger *zap.Logger
}

// NewAssemblyAIDiarizer creates a diarizer using the official SDK client.
func NewAssemblyAIDiarizer(apiKey string, opts ...Option) *AssemblyAIDiarizer {
	return newAssemblyAIDiarizer(sdkTranscripts{client: aai.NewClient(apiKey)}, opts...)
}

func newAssemblyAIDiarizer(api transcriptAPI, opts ...Option) *AssemblyAIDiarizer {
	o := newClientOptions(opts)
	return &AssemblyAIDiarizer{
		api:    api,
		retry:  o.retry,
		logger: o.logger,
	}
}

// Diarize implements the pipeline Diarizer.
func (d *AssemblyAIDiarizer) Diarize(ctx context.Context, audioPath string) ([]entities.SpeakerSegment, error) {
	var uploadURL string
	err := retry(ctx, d.retry, d.logger, "assemblyai.upload", func() error {
		f, err := os.Open(audioPath)
		if err != nil {
			return err
		}
		defer f.Close()

		uploadURL, err = d.api.Upload(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to AssemblyAI: %w", err)
	}

	if d.logger != nil {
		d.logger.Info("✅ File uploaded to AssemblyAI",
			zap.String("audio_path", audioPath),
		)
	}

	params := &aai.TranscriptOptionalParams{
		SpeakerLabels:     aai.Bool(true),
		LanguageDetection: aai.Bool(true),
	}

	var transcript aai.Transcript
	err = retry(ctx, d.retry, d.logger, "assemblyai.transcribe", func() error {
		var err error
		transcript, err = d.api.TranscribeFromURL(ctx, uploadURL, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcription failed: %w", err)
	}

	if transcript.Status == aai.TranscriptStatusError {
		errorMsg := "AssemblyAI transcription failed"
		if transcript.Error != nil {
			errorMsg = fmt.Sprintf("AssemblyAI error: %s", *transcript.Error)
		}
		return nil, fmt.Errorf("%s", errorMsg)
	}

	segments := UtterancesToSegments(transcript.Utterances)
	if d.logger != nil {
		d.logger.Info("🗣️ Diarization completed",
			zap.Int("utterance_count", len(transcript.Utterances)),
			zap.Int("segment_count", len(segments)),
		)
	}
	return segments, nil
}

// UtterancesToSegments converts utterances (ms) to segments (s), dropping
// ones without timing and sorting by start.
func UtterancesToSegments(utterances []aai.TranscriptUtterance) []entities.SpeakerSegment {
	segments := make([]entities.SpeakerSegment, 0, len(utterances))
	for _, utt := range utterances {
		if utt.Start == nil || utt.End == nil {
			continue
		}
		seg := entities.SpeakerSegment{
			Start: float64(*utt.Start) / 1000.0, // ms to seconds
			End:   float64(*utt.End) / 1000.0,
		}
		if utt.Speaker != nil {
			seg.Speaker = SpeakerPrefix + *utt.Speaker
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments
}
