package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL + "/v1/"
}

func TestOpenAIChat_Complete(t *testing.T) {
	var body map[string]any
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"SUMMARY:\nok"}}]}`)
	})

	c := NewOpenAIChat("sk-test", "gpt-4o-mini", WithBaseURL(base), WithRetryPolicy(fastRetry()))
	out, err := c.Complete(context.Background(), Completion{
		System:      "sys",
		Prompt:      "user prompt",
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUMMARY:\nok", out)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, float64(2000), body["max_tokens"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user prompt", msgs[1].(map[string]any)["content"])
}

func TestOpenAIChat_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"done"}}]}`)
	})

	c := NewOpenAIChat("k", "m", WithBaseURL(base), WithRetryPolicy(fastRetry()))
	out, err := c.Complete(context.Background(), Completion{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIChat_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	c := NewOpenAIChat("k", "m", WithBaseURL(base), WithRetryPolicy(fastRetry()))
	_, err := c.Complete(context.Background(), Completion{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var body map[string]any
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.5,0.25,0]},
			{"object":"embedding","index":0,"embedding":[1,2,3]}]}`)
	})

	e := NewOpenAIEmbedder("k", "text-embedding-3-small", 3, WithBaseURL(base), WithRetryPolicy(fastRetry()))
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {0.5, 0.25, 0}}, vecs)
	assert.Equal(t, []any{"a", "b"}, body["input"])
	assert.Equal(t, float64(3), body["dimensions"])
	assert.Equal(t, "text-embedding-3-small", e.ModelName())
	assert.Equal(t, 3, e.Dimension())
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,2]}]}`)
	})

	e := NewOpenAIEmbedder("k", "m", 3, WithBaseURL(base), WithRetryPolicy(fastRetry()))
	_, err := e.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "dimension 2")
}

type fakeClipper struct {
	err   error
	calls int
}

func (f *fakeClipper) Clip(_ context.Context, _ string, start, end float64) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("RIFF %.1f-%.1f", start, end)), nil
}

type fixedClassifier string

func (c fixedClassifier) Classify(string) string { return string(c) }

func TestWhisperTranscriber_Transcribe(t *testing.T) {
	base := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFF 1.0-2.5", string(data))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"  我哋今日 review 下 budget  ","language":"chinese","duration":1.5}`)
	})

	clipper := &fakeClipper{}
	tr := NewWhisperTranscriber("k", "whisper-1", clipper, fixedClassifier("mixed"),
		WithBaseURL(base), WithRetryPolicy(fastRetry()))

	text, lang, err := tr.Transcribe(context.Background(), "meeting.wav", 1, 2.5)
	require.NoError(t, err)
	assert.Equal(t, "我哋今日 review 下 budget", text)
	assert.Equal(t, "mixed", lang)
}

func TestWhisperTranscriber_ClipFailure(t *testing.T) {
	tr := NewWhisperTranscriber("k", "whisper-1", &fakeClipper{err: errors.New("ffmpeg failed")}, nil,
		WithRetryPolicy(fastRetry()))

	_, _, err := tr.Transcribe(context.Background(), "meeting.wav", 0, 1)
	assert.ErrorContains(t, err, "ffmpeg failed")
}

func TestGroqClient_Complete(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-70b-versatile", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "answer"}}},
		})
	}))
	defer ts.Close()

	g := NewGroqClient("gsk-test", "llama-3.1-70b-versatile", WithBaseURL(ts.URL), WithRetryPolicy(fastRetry()))
	out, err := g.Complete(context.Background(), Completion{System: "s", Prompt: "p", Temperature: 0.2, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGroqClient_ClientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"model not found"}`)
	}))
	defer ts.Close()

	g := NewGroqClient("k", "m", WithBaseURL(ts.URL), WithRetryPolicy(fastRetry()))
	_, err := g.Complete(context.Background(), Completion{Prompt: "p"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "model not found")
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(context.Canceled))
	assert.True(t, Retryable(&StatusError{Service: "groq", StatusCode: 502}))
	assert.True(t, Retryable(&StatusError{Service: "groq", StatusCode: 429}))
	assert.False(t, Retryable(&StatusError{Service: "groq", StatusCode: 404}))
	assert.True(t, Retryable(fmt.Errorf("wrapped: %w", errors.New("i/o timeout"))))
	assert.False(t, Retryable(errors.New("unsupported audio format")))
}

func TestTokenizer_ApproxTruncate(t *testing.T) {
	tok := NewApproxTokenizer()
	assert.Equal(t, 2, tok.Count("abcd"))

	out, cut := tok.Truncate("abcdefghij", 2)
	assert.True(t, cut)
	assert.Equal(t, "abcdef", out)

	out, cut = tok.Truncate("abc", 2)
	assert.False(t, cut)
	assert.Equal(t, "abc", out)

	out, cut = tok.Truncate("abcdefghij", 0)
	assert.False(t, cut)
	assert.Equal(t, "abcdefghij", out)
}
