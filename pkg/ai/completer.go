package ai

import "context"

// Completion is a single-turn chat request.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer runs a chat completion and returns the assistant text.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Completion) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, req Completion) (string, error) {
	return f(ctx, req)
}
