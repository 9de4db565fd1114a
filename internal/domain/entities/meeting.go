package entities

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// FailedTranscriptionText marks a chunk whose segment could not be transcribed.
	FailedTranscriptionText = "[Transcription failed]"

	// LanguageUnknown is rendered for chunks without a detected language.
	LanguageUnknown = "unknown"
	// LanguageMixed is reported when no script dominates a segment.
	LanguageMixed = "mixed"
)

// SpeakerSegment is one diarized speaker turn, in seconds.
type SpeakerSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 {
	return s.End - s.Start
}

// Valid reports whether the segment spans a positive interval.
func (s SpeakerSegment) Valid() bool {
	return s.End > s.Start
}

// TranscriptChunk is one transcribed segment and the atomic retrieval unit.
type TranscriptChunk struct {
	ChunkID  string  `json:"chunk_id"`
	Speaker  string  `json:"speaker"`
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Text     string  `json:"text"`
	Language *string `json:"language"`
}

// ChunkID formats the stable, zero-padded identifier for the i-th segment.
func ChunkID(i int) string {
	return fmt.Sprintf("chunk_%04d", i)
}

// NewChunk builds a chunk for the i-th segment.
func NewChunk(i int, seg SpeakerSegment, text, language string) TranscriptChunk {
	var lang *string
	if language != "" {
		lang = &language
	}
	return TranscriptChunk{
		ChunkID:  ChunkID(i),
		Speaker:  seg.Speaker,
		Start:    seg.Start,
		End:      seg.End,
		Text:     text,
		Language: lang,
	}
}

// NewFailedChunk builds the placeholder emitted when transcription of the
// i-th segment fails.
func NewFailedChunk(i int, seg SpeakerSegment) TranscriptChunk {
	return TranscriptChunk{
		ChunkID: ChunkID(i),
		Speaker: seg.Speaker,
		Start:   seg.Start,
		End:     seg.End,
		Text:    FailedTranscriptionText,
	}
}

// Failed reports whether the chunk is a transcription-failure placeholder.
func (c TranscriptChunk) Failed() bool {
	return c.Language == nil && c.Text == FailedTranscriptionText
}

// LanguageOrUnknown returns the language tag or "unknown".
func (c TranscriptChunk) LanguageOrUnknown() string {
	if c.Language == nil || *c.Language == "" {
		return LanguageUnknown
	}
	return *c.Language
}

// ContextString renders the chunk for prompts and citations:
// "[12.0s–15.5s] SPEAKER_00 (en): text".
func (c TranscriptChunk) ContextString() string {
	return fmt.Sprintf("[%.1fs–%.1fs] %s (%s): %s", c.Start, c.End, c.Speaker, c.LanguageOrUnknown(), c.Text)
}

// MeetingTranscript is the ordered transcript of one meeting.
type MeetingTranscript struct {
	MeetingID string            `json:"meeting_id"`
	Chunks    []TranscriptChunk `json:"chunks"`
	Speakers  []string          `json:"speakers"`
	Duration  float64           `json:"duration"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMeetingTranscript assembles a transcript. Duration and speakers come
// from the segments, so failed transcriptions do not affect them.
func NewMeetingTranscript(meetingID string, segments []SpeakerSegment, chunks []TranscriptChunk, createdAt time.Time) *MeetingTranscript {
	seen := make(map[string]struct{}, len(segments))
	speakers := make([]string, 0)
	var duration float64
	for _, seg := range segments {
		if seg.End > duration {
			duration = seg.End
		}
		if _, ok := seen[seg.Speaker]; !ok {
			seen[seg.Speaker] = struct{}{}
			speakers = append(speakers, seg.Speaker)
		}
	}
	sort.Strings(speakers)

	if chunks == nil {
		chunks = []TranscriptChunk{}
	}
	return &MeetingTranscript{
		MeetingID: meetingID,
		Chunks:    chunks,
		Speakers:  speakers,
		Duration:  duration,
		CreatedAt: createdAt,
	}
}

// FullText joins every chunk's context string, one per line.
func (t *MeetingTranscript) FullText() string {
	lines := make([]string, len(t.Chunks))
	for i, c := range t.Chunks {
		lines[i] = c.ContextString()
	}
	return strings.Join(lines, "\n")
}

// SpeakerTurns counts chunks per speaker.
func (t *MeetingTranscript) SpeakerTurns() map[string]int {
	turns := make(map[string]int, len(t.Speakers))
	for _, c := range t.Chunks {
		turns[c.Speaker]++
	}
	return turns
}

// FailedChunks counts transcription-failure placeholders.
func (t *MeetingTranscript) FailedChunks() int {
	n := 0
	for _, c := range t.Chunks {
		if c.Failed() {
			n++
		}
	}
	return n
}

// MeetingResult is the immutable outcome of one pipeline run.
type MeetingResult struct {
	MeetingID   string             `json:"meeting_id"`
	Transcript  *MeetingTranscript `json:"transcript"`
	Summary     *SummaryResponse   `json:"summary"`
	ProcessedAt time.Time          `json:"processed_at"`
}
