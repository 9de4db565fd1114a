package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/usecase/qa"
	pkgvalidator "github.com/johnquangdev/meeting-rag/pkg/validator"
)

type fakeProcessor struct {
	gotPath      string
	gotID        string
	audioExisted bool
	err          error
	deleted      []string
}

func (p *fakeProcessor) Ingest(_ context.Context, audioPath, meetingID string) (*entities.MeetingResult, string, error) {
	p.gotPath = audioPath
	p.gotID = meetingID
	_, statErr := os.Stat(audioPath)
	p.audioExisted = statErr == nil
	if p.err != nil {
		return nil, "", p.err
	}
	if meetingID == "" {
		meetingID = "meeting_generated"
	}
	return sampleMeeting(meetingID), "/data/" + meetingID, nil
}

func (p *fakeProcessor) Delete(_ context.Context, meetingID string) error {
	if meetingID != "meeting_a" {
		return errors.ErrMeetingNotFound(meetingID)
	}
	p.deleted = append(p.deleted, meetingID)
	return nil
}

type fakeQuerier struct {
	gotParams qa.AskParams
}

func (q *fakeQuerier) Ask(_ context.Context, params qa.AskParams) (*qa.AskResult, error) {
	q.gotParams = params
	if params.MeetingID != "meeting_a" {
		return nil, errors.ErrMeetingNotFound(params.MeetingID)
	}
	chunk := sampleMeeting("meeting_a").Transcript.Chunks[0]
	return &qa.AskResult{
		MeetingID: params.MeetingID,
		Question:  params.Question,
		Answer:    "Fifty thousand.",
		Sources:   []qa.SourceReference{{Chunk: chunk, Distance: 0.5}},
	}, nil
}

func (q *fakeQuerier) Get(_ context.Context, meetingID string) (*entities.MeetingResult, error) {
	if meetingID != "meeting_a" {
		return nil, errors.ErrMeetingNotFound(meetingID)
	}
	return sampleMeeting(meetingID), nil
}

func (q *fakeQuerier) List(context.Context) ([]string, error) {
	return []string{"meeting_a", "meeting_b"}, nil
}

func sampleMeeting(id string) *entities.MeetingResult {
	segs := []entities.SpeakerSegment{
		{Speaker: "SPEAKER_00", Start: 0, End: 4.5},
		{Speaker: "SPEAKER_01", Start: 4.5, End: 9},
	}
	chunks := []entities.TranscriptChunk{
		entities.NewChunk(0, segs[0], "The budget is fifty thousand.", "en"),
		entities.NewFailedChunk(1, segs[1]),
	}
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &entities.MeetingResult{
		MeetingID:   id,
		Transcript:  entities.NewMeetingTranscript(id, segs, chunks, created),
		Summary:     entities.NewSummaryResponse("Budget review.", []string{"Send deck"}, nil, nil),
		ProcessedAt: created,
	}
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeProcessor, *fakeQuerier) {
	t.Helper()
	e := echo.New()
	e.Validator = pkgvalidator.New()

	p := &fakeProcessor{}
	q := &fakeQuerier{}
	h := NewMeetingHandler(p, q, nil, t.TempDir(), 1<<20, nil)
	NewRouter(nil, h).Setup(e)
	return e, p, q
}

func do(e *echo.Echo, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code    int             `json:"code"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]string
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestUpload_IngestsSavedFile(t *testing.T) {
	e, p, _ := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "standup.WAV")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF....WAVE"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("meeting_id", "meeting_upload"))
	require.NoError(t, w.Close())

	rec := do(e, http.MethodPost, "/v1/meetings", body.Bytes(), w.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "meeting_upload", p.gotID)
	assert.True(t, strings.HasSuffix(p.gotPath, ".wav"))
	assert.True(t, p.audioExisted, "the upload is on disk while processing")
	_, err = os.Stat(p.gotPath)
	assert.True(t, os.IsNotExist(err), "the upload is removed afterwards")

	var data struct {
		MeetingID    string   `json:"meeting_id"`
		Speakers     []string `json:"speakers"`
		ChunkCount   int      `json:"chunk_count"`
		FailedChunks int      `json:"failed_chunks"`
		Location     string   `json:"location"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "meeting_upload", data.MeetingID)
	assert.Equal(t, []string{"SPEAKER_00", "SPEAKER_01"}, data.Speakers)
	assert.Equal(t, 2, data.ChunkCount)
	assert.Equal(t, 1, data.FailedChunks)
	assert.Equal(t, "/data/meeting_upload", data.Location)
}

func TestUpload_RequiresFile(t *testing.T) {
	e, _, _ := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("meeting_id", "meeting_x"))
	require.NoError(t, w.Close())

	rec := do(e, http.MethodPost, "/v1/meetings", body.Bytes(), w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	for _, name := range []string{"notes.txt", "standup", "clip.wav.exe"} {
		t.Run(name, func(t *testing.T) {
			e, p, _ := newTestServer(t)

			var body bytes.Buffer
			w := multipart.NewWriter(&body)
			part, err := w.CreateFormFile("file", name)
			require.NoError(t, err)
			_, err = part.Write([]byte("not audio"))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			rec := do(e, http.MethodPost, "/v1/meetings", body.Bytes(), w.FormDataContentType())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_ARGUMENT", decode(t, rec).Status)
			assert.Empty(t, p.gotPath)
		})
	}
}

func TestProcess_Validation(t *testing.T) {
	e, p, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/meetings/process", []byte(`{"meeting_id":"meeting_x"}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode(t, rec).Status)

	rec = do(e, http.MethodPost, "/v1/meetings/process", []byte(`{"audio_path":"/a.wav","meeting_id":"../x"}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/v1/meetings/process", []byte(`{`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, p.gotPath)
}

func TestProcess_MapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"already exists", errors.ErrMeetingAlreadyExists("meeting_x"), http.StatusConflict, "MEETING_ALREADY_EXISTS"},
		{"audio missing", errors.ErrAudioNotFound("/a.wav", os.ErrNotExist), http.StatusNotFound, "AUDIO_NOT_FOUND"},
		{"stage failure", errors.ErrStageFailed("diarize", context.DeadlineExceeded), http.StatusInternalServerError, "PIPELINE_STAGE_FAILED"},
		{"unknown error", context.Canceled, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, p, _ := newTestServer(t)
			p.err = tt.err

			rec := do(e, http.MethodPost, "/v1/meetings/process", []byte(`{"audio_path":"/a.wav","meeting_id":"meeting_x"}`), echo.MIMEApplicationJSON)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec).Status)
		})
	}

	e, p, _ := newTestServer(t)
	p.err = errors.ErrStageFailed("summarize", context.DeadlineExceeded)
	rec := do(e, http.MethodPost, "/v1/meetings/process", []byte(`{"audio_path":"/a.wav"}`), echo.MIMEApplicationJSON)
	assert.Contains(t, rec.Body.String(), `"stage":"summarize"`)
}

func TestGetListTranscript(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/v1/meetings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"meetings":["meeting_a","meeting_b"]`)

	rec = do(e, http.MethodGet, "/v1/meetings/meeting_a", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"summary":"Budget review."`)
	assert.Contains(t, rec.Body.String(), `"key_decisions":[]`)

	rec = do(e, http.MethodGet, "/v1/meetings/meeting_a/transcript", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript struct {
		Chunks []struct {
			ChunkID  string  `json:"chunk_id"`
			Language *string `json:"language"`
			Context  string  `json:"context"`
		} `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &transcript))
	require.Len(t, transcript.Chunks, 2)
	assert.Equal(t, "[0.0s–4.5s] SPEAKER_00 (en): The budget is fifty thousand.", transcript.Chunks[0].Context)
	assert.Nil(t, transcript.Chunks[1].Language)

	rec = do(e, http.MethodGet, "/v1/meetings/unknown-id", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MEETING_NOT_FOUND", decode(t, rec).Status)
}

func TestAsk(t *testing.T) {
	e, _, q := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/meetings/meeting_a/ask", []byte(`{"question":"What is the budget?","top_k":3}`), echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, qa.AskParams{MeetingID: "meeting_a", Question: "What is the budget?", TopK: 3}, q.gotParams)

	var data struct {
		Answer  string `json:"answer"`
		Sources []struct {
			ChunkID  string  `json:"chunk_id"`
			Distance float32 `json:"distance"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "Fifty thousand.", data.Answer)
	require.Len(t, data.Sources, 1)
	assert.Equal(t, "chunk_0000", data.Sources[0].ChunkID)
	assert.Equal(t, float32(0.5), data.Sources[0].Distance)

	rec = do(e, http.MethodPost, "/v1/meetings/meeting_a/ask", []byte(`{"question":""}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/v1/meetings/meeting_a/ask", []byte(`{"question":"q","top_k":51}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/v1/meetings/other/ask", []byte(`{"question":"q"}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAndCatalogDisabled(t *testing.T) {
	e, p, _ := newTestServer(t)

	rec := do(e, http.MethodDelete, "/v1/meetings/meeting_a", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"meeting_a"}, p.deleted)

	rec = do(e, http.MethodDelete, "/v1/meetings/meeting_b", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/v1/catalog", nil, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
