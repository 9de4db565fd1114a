package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-rag/internal/infrastructure/storage"
)

type fakeDiarizer struct {
	segments []entities.SpeakerSegment
	err      error
	calls    atomic.Int32
}

func (d *fakeDiarizer) Diarize(_ context.Context, _ string) ([]entities.SpeakerSegment, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	out := make([]entities.SpeakerSegment, len(d.segments))
	copy(out, d.segments)
	return out, nil
}

type transcribeFunc func(ctx context.Context, start, end float64) (string, string, error)

type fakeTranscriber struct {
	fn          transcribeFunc
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, _ string, start, end float64) (string, string, error) {
	t.calls.Add(1)
	n := t.inFlight.Add(1)
	defer t.inFlight.Add(-1)
	for {
		prev := t.maxInFlight.Load()
		if n <= prev || t.maxInFlight.CompareAndSwap(prev, n) {
			break
		}
	}
	return t.fn(ctx, start, end)
}

// vocabEmbedder maps each vocabulary word to its own axis and counts
// occurrences. Unknown words are ignored.
type vocabEmbedder struct {
	vocab map[string]int
	model string
	err   error
	calls atomic.Int32

	// rejectBlank mimics hosted APIs that refuse empty inputs.
	rejectBlank bool
	// block, when set, stalls Embed until closed, ignoring ctx.
	block chan struct{}
}

var testVocabulary = []string{
	"marketing", "budget", "launch", "hiring", "roadmap", "design",
	"testing", "pricing", "security", "onboarding", "metrics", "travel",
}

func newVocabEmbedder() *vocabEmbedder {
	vocab := make(map[string]int, len(testVocabulary))
	for i, w := range testVocabulary {
		vocab[w] = i
	}
	return &vocabEmbedder{vocab: vocab, model: "vocab-embed"}
}

func (e *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.block != nil {
		<-e.block
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.rejectBlank && strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("400: input[%d] cannot be an empty string", i)
		}
		vec := make([]float32, len(e.vocab))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			if axis, ok := e.vocab[strings.Trim(word, ".,?!:;")]; ok {
				vec[axis]++
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (e *vocabEmbedder) ModelName() string { return e.model }
func (e *vocabEmbedder) Dimension() int    { return len(e.vocab) }

type fakeSummarizer struct {
	mu          sync.Mutex
	resp        *entities.SummaryResponse
	err         error
	answer      string
	gotContext  string
	gotQuestion string
	answerCalls int
}

func newFakeSummarizer() *fakeSummarizer {
	return &fakeSummarizer{
		resp: entities.NewSummaryResponse("Budget review.",
			[]string{"Send the deck"}, []string{"Ship in May"}, []string{"budget"}),
		answer: "The budget is fifty thousand.",
	}
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ *entities.MeetingTranscript) (*entities.SummaryResponse, error) {
	return s.resp, s.err
}

func (s *fakeSummarizer) AnswerQuestion(_ context.Context, contextText, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answerCalls++
	s.gotContext = contextText
	s.gotQuestion = question
	return s.answer, s.err
}

type fakeCatalog struct {
	mu      sync.Mutex
	records map[string]*entities.MeetingRecord
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: make(map[string]*entities.MeetingRecord)}
}

func (c *fakeCatalog) Upsert(_ context.Context, record *entities.MeetingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.ID] = record
	return nil
}

func (c *fakeCatalog) FindByID(_ context.Context, id string) (*entities.MeetingRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[id], nil
}

func (c *fakeCatalog) List(_ context.Context, _, _ int) ([]*entities.MeetingRecord, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*entities.MeetingRecord, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (c *fakeCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
	return nil
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	orch        *Orchestrator
	diarizer    *fakeDiarizer
	transcriber *fakeTranscriber
	embedder    *vocabEmbedder
	summarizer  *fakeSummarizer
	store       *storage.FileSystemStore
	root        string
	reserver    *cache.MemoryReserver
	cache       *ResultCache
	catalog     *fakeCatalog
	audio       string
}

func echoTranscriber(_ context.Context, start, end float64) (string, string, error) {
	return "discussing the budget", "en", nil
}

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "meeting.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF....WAVE"), 0o644))
	return p
}

func newHarness(t *testing.T, segments ...entities.SpeakerSegment) *harness {
	t.Helper()

	root := t.TempDir()
	store, err := storage.NewFileSystemStore(root, nil)
	require.NoError(t, err)

	h := &harness{
		diarizer:    &fakeDiarizer{segments: segments},
		transcriber: &fakeTranscriber{fn: echoTranscriber},
		embedder:    newVocabEmbedder(),
		summarizer:  newFakeSummarizer(),
		store:       store,
		root:        root,
		reserver:    cache.NewMemoryReserver(),
		cache:       NewResultCache(cache.Options{MaxEntries: 8}),
		catalog:     newFakeCatalog(),
		audio:       writeAudio(t),
	}
	t.Cleanup(h.cache.Close)

	h.orch, err = New(Dependencies{
		Diarizer:    h.diarizer,
		Transcriber: h.transcriber,
		Embedder:    h.embedder,
		Summarizer:  h.summarizer,
		Store:       h.store,
		Reserver:    h.reserver,
		Cache:       h.cache,
		Catalog:     h.catalog,
	}, DefaultConfig(), nil)
	require.NoError(t, err)
	h.orch.now = func() time.Time { return fixedNow }
	return h
}
