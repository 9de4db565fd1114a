// Package summary turns transcripts into sectioned summaries and answers
// questions over retrieved context using a chat model.
package summary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/services"
	"github.com/johnquangdev/meeting-rag/pkg/ai"
)

// NoAnswer is returned when the model produces an empty answer.
const NoAnswer = "No answer generated."

const truncatedMarker = "\n[Transcript truncated]"

// Config tunes the prompts sent to the model.
type Config struct {
	MaxPromptTokens    int
	SummaryTemperature float64
	SummaryMaxTokens   int
	AnswerTemperature  float64
	AnswerMaxTokens    int
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		MaxPromptTokens:    12000,
		SummaryTemperature: 0.3,
		SummaryMaxTokens:   2000,
		AnswerTemperature:  0.2,
		AnswerMaxTokens:    1000,
	}
}

// Summarizer implements services.Summarizer over a chat Completer.
type Summarizer struct {
	completer ai.Completer
	tokens    *ai.Tokenizer
	cfg       Config
	logger    *zap.Logger
}

// NewSummarizer creates a summarizer. A nil tokenizer uses the rune
// approximation.
func NewSummarizer(completer ai.Completer, tokens *ai.Tokenizer, cfg Config, logger *zap.Logger) *Summarizer {
	if tokens == nil {
		tokens = ai.NewApproxTokenizer()
	}
	return &Summarizer{
		completer: completer,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
}

// Summarize implements services.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, transcript *entities.MeetingTranscript) (*entities.SummaryResponse, error) {
	if transcript == nil {
		return nil, apperrors.ErrInvalidArgument("transcript is required")
	}

	fullText := transcript.FullText()
	text, truncated := s.tokens.Truncate(fullText, s.cfg.MaxPromptTokens)
	if truncated {
		text += truncatedMarker
		if s.logger != nil {
			s.logger.Warn("⚠️ Transcript exceeds prompt budget, truncating",
				zap.String("meeting_id", transcript.MeetingID),
				zap.Int("max_tokens", s.cfg.MaxPromptTokens),
			)
		}
	}

	prompt := BuildSummaryPrompt(text, transcript.Speakers, transcript.SpeakerTurns(), transcript.Duration)

	if s.logger != nil {
		s.logger.Info("🤖 Generating meeting summary",
			zap.String("meeting_id", transcript.MeetingID),
			zap.Int("chunk_count", len(transcript.Chunks)),
			zap.Int("text_length", len(text)),
		)
	}

	content, err := s.completer.Complete(ctx, ai.Completion{
		System:      summarySystemPrompt,
		Prompt:      prompt,
		Temperature: s.cfg.SummaryTemperature,
		MaxTokens:   s.cfg.SummaryMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	result := ParseSummary(content)
	if s.logger != nil {
		s.logger.Info("✅ Summary generated",
			zap.String("meeting_id", transcript.MeetingID),
			zap.Int("action_items", len(result.ActionItems)),
			zap.Int("key_decisions", len(result.KeyDecisions)),
			zap.Int("topics", len(result.Topics)),
		)
	}
	return result, nil
}

// AnswerQuestion implements services.Summarizer.
func (s *Summarizer) AnswerQuestion(ctx context.Context, contextText, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperrors.ErrValidationFailed(entities.ErrEmptyQuestion)
	}

	contextText, truncated := s.tokens.Truncate(contextText, s.cfg.MaxPromptTokens)
	if truncated && s.logger != nil {
		s.logger.Warn("⚠️ Answer context exceeds prompt budget, truncating",
			zap.Int("max_tokens", s.cfg.MaxPromptTokens),
		)
	}

	answer, err := s.completer.Complete(ctx, ai.Completion{
		System:      answerSystemPrompt,
		Prompt:      BuildAnswerPrompt(contextText, question),
		Temperature: s.cfg.AnswerTemperature,
		MaxTokens:   s.cfg.AnswerMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to answer question: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return NoAnswer, nil
	}
	return answer, nil
}

var _ services.Summarizer = (*Summarizer)(nil)
