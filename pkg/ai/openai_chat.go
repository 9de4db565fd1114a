package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

// OpenAIChat implements Completer with the Chat Completions API.
type OpenAIChat struct {
	client openai.Client
	model  string
	retry  RetryPolicy
	logger *zap.Logger
}

// NewOpenAIChat creates a chat completer for model.
func NewOpenAIChat(apiKey, model string, opts ...Option) *OpenAIChat {
	o := newClientOptions(opts)
	return &OpenAIChat{
		client: newOpenAIClient(apiKey, o),
		model:  model,
		retry:  o.retry,
		logger: o.logger,
	}
}

// Complete implements Completer.
func (c *OpenAIChat) Complete(ctx context.Context, req Completion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	var content string
	err := retry(ctx, c.retry, c.logger, "openai.chat", func() error {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("empty response from openai")
		}
		content = completion.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	return content, nil
}

func messages(req Completion) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}

var _ Completer = (*OpenAIChat)(nil)
