// llmcomplete is a small package that sends one chat completion request to an OpenAI-compatible API (OpenAI itself, or a local Ollama server) and returns the reply,
// its tool calls, and token usage. There is no conversation state and no streaming: a docstring run is a single request.
package llmcomplete

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Request is one chat completion request.
type Request struct {
	Model    string
	Messages []prompt.Message
	Tools    []prompt.Tool // optional; when set, the model may reply with ToolCalls instead of Content
}

// ToolCall is one function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON, as sent by the model
}

// Usage is the token usage of one response.
type Usage struct {
	TotalTokens     int
	InputTokens     int
	ReasoningTokens int
	OutputTokens    int // total output tokens (includes reasoning tokens)
}

// LogPairs returns an even number of elements, string and value, for use in slog's logging.
func (u Usage) LogPairs() []any {
	return []any{
		"tokens", u.TotalTokens,
		"in", u.InputTokens,
		"reasoning", u.ReasoningTokens,
		"out", u.OutputTokens,
	}
}

// Response is the model's reply.
type Response struct {
	RequestID  string // ex: "chatcmpl-BXYJ0U9PpC3uDzeoP2ZN1nBthfnpu"
	Model      string // ex: "gpt-5-mini-2025-08-07"
	StopReason string // ex: "stop" or "tool_calls"

	Content   string // text reply (or the refusal, if the model refused)
	ToolCalls []ToolCall
	Usage     Usage
}

// ResponseError describes a failed request. It is returned (wrapped) by Complete when the provider errored or rejected the request.
type ResponseError struct {
	Err        error // actual error from the client library
	StatusCode int   // HTTP status code (0 if the request never got a response)
	Message    string
}

func (e *ResponseError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// Completer sends a chat completion request. *Client implements it; tests use MockCompleter.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client talks to one provider's OpenAI-compatible chat completions endpoint.
type Client struct {
	provider llmmodel.ProviderID
	client   openai.Client
	logger   *slog.Logger
}

var _ Completer = (*Client)(nil)

// NewClient returns a client for provider. An empty apiKey uses llmmodel.GetAPIKey(provider); an empty baseURL uses llmmodel.APIEndpointURL(provider). It returns an
// error if the provider is unknown or if no API key is available (Ollama always has one).
func NewClient(provider llmmodel.ProviderID, apiKey string, baseURL string) (*Client, error) {
	if provider == llmmodel.ProviderIDUnknown {
		return nil, fmt.Errorf("llmcomplete: provider is required")
	}
	if llmmodel.APIEndpointURL(provider) == "" {
		return nil, fmt.Errorf("llmcomplete: unsupported provider %q", provider)
	}
	if apiKey == "" {
		apiKey = llmmodel.GetAPIKey(provider)
	}
	if apiKey == "" {
		if env := llmmodel.ProviderKeyEnvVars()[provider]; env != "" {
			return nil, fmt.Errorf("llmcomplete: API key is required for %s (set %s)", provider, env)
		}
		return nil, fmt.Errorf("llmcomplete: API key is required for %s", provider)
	}
	if baseURL == "" {
		baseURL = llmmodel.APIEndpointURL(provider)
	}

	return &Client{
		provider: provider,
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0), // Complete retries itself
		),
		logger: slog.New(slog.DiscardHandler),
	}, nil
}

// SetLogger sets the logger that requests, responses, and retries are logged to. A nil logger discards.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c.logger = logger
}

// Provider returns the provider the client talks to.
func (c *Client) Provider() llmmodel.ProviderID {
	return c.provider
}

// ErrRetryable marks an error as retryable by the caller.
var ErrRetryable = errors.New("llmcomplete: retryable")

func makeRetryable(err error) error { return fmt.Errorf("%w: %w", ErrRetryable, err) }
func isRetryable(err error) bool    { return errors.Is(err, ErrRetryable) }

// retrySleepDurations' i'th index is the sleep duration for the i'th retry. Any retry after that would use the last value.
//
// This is meant to mix exponential backoff, an eager initial retry, keeping sleep times long enough that things might recover but short enough that the user doesn't
// think things hung.
var retrySleepDurations = []time.Duration{
	10 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	10 * time.Second,
}

const retryMaxAttempts = 3

// Complete sends req and returns the model's reply. Rate limits, server errors, and network errors are retried a few times. A request the provider rejects returns
// an error wrapping *ResponseError.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("llmcomplete: model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("llmcomplete: at least one message is required")
	}

	for _, m := range req.Messages {
		c.logger.Info("llmcomplete.message", "provider", c.provider, "model", req.Model, "role", m.Role, "bytes", len(m.Content))
	}

	params, err := newChatCompletionParams(req)
	if err != nil {
		return nil, err
	}

	var resp *Response
	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		resp, err = c.sendOpenAI(ctx, params)
		if err == nil {
			break
		}
		if !isRetryable(err) || attempt == retryMaxAttempts {
			break
		}

		sleep := retrySleepDurations[min(attempt-1, len(retrySleepDurations)-1)]
		c.logger.Info("llmcomplete.retry", "attempt", attempt, "max", retryMaxAttempts, "sleep", sleep, "err", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	if err != nil {
		c.logger.Error("llmcomplete.error", "provider", c.provider, "model", req.Model, "err", err)
		return nil, err
	}

	c.logger.Info("llmcomplete.response", append([]any{"model", resp.Model, "stop", resp.StopReason, "bytes", len(resp.Content), "tool_calls", len(resp.ToolCalls)}, resp.Usage.LogPairs()...)...)
	return resp, nil
}
