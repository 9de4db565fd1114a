// Package ai adapts hosted speech, embedding and chat APIs to the meeting
// pipeline's collaborator interfaces.
package ai

import (
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *zap.Logger
}

// Option configures an API adapter.
type Option func(*clientOptions)

// WithBaseURL points the adapter at a different API root.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *clientOptions) {
		o.retry = p
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = l
	}
}

func newClientOptions(opts []Option) clientOptions {
	o := clientOptions{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newOpenAIClient builds an SDK client with SDK-level retries disabled;
// retries are handled by retry().
func newOpenAIClient(apiKey string, o clientOptions) openai.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return openai.NewClient(reqOpts...)
}
