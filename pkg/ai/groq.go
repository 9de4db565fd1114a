package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const defaultGroqBaseURL = "https://api.groq.com"

// GroqClient is a minimal client for Groq's OpenAI-compatible chat API.
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   RetryPolicy
	logger  *zap.Logger
}

// NewGroqClient creates a Groq chat completer.
func NewGroqClient(apiKey, model string, opts ...Option) *GroqClient {
	o := newClientOptions(opts)
	base := o.baseURL
	if base == "" {
		base = defaultGroqBaseURL
	}
	return &GroqClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		model:   model,
		client:  o.httpClient,
		retry:   o.retry,
		logger:  o.logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Completer.
func (g *GroqClient) Complete(ctx context.Context, req Completion) (string, error) {
	reqBody := ChatRequest{
		Model:       g.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: req.System})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: req.Prompt})

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var content string
	err = retry(ctx, g.retry, g.logger, "groq.chat", func() error {
		content, err = g.post(ctx, b)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("groq chat completion failed: %w", err)
	}
	return content, nil
}

func (g *GroqClient) post(ctx context.Context, body []byte) (string, error) {
	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{Service: "groq", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}

var _ Completer = (*GroqClient)(nil)
