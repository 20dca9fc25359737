package docubot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codalotl/pydocify/internal/llmcomplete"
	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"
	"github.com/codalotl/pydocify/internal/updatedocs"
)

var (
	// ErrEmptyResponse is returned in rewrite mode when the model replied with no content.
	ErrEmptyResponse = errors.New("docubot: model returned no content")

	// ErrNoToolCalls is returned in inject mode when the model did not call any tool.
	ErrNoToolCalls = errors.New("docubot: model did not return any tool calls")

	// ErrNoDocstrings is returned in inject mode when none of the model's tool calls carried a usable docstring.
	ErrNoDocstrings = errors.New("docubot: no valid docstrings were generated")
)

// Options configures GenerateDocumentation.
type Options struct {
	Provider llmmodel.ProviderID
	Model    string      // provider model ID (ex: "gpt-5-mini")
	Mode     prompt.Mode // defaults to prompt.ModeRewrite

	// Completer allows callers to inject their own LLM implementation, including mocks for testing. If nil, an llmcomplete.Client for Provider is created with the
	// provider's default key and endpoint.
	Completer llmcomplete.Completer

	Logger *slog.Logger // optional
}

func (o Options) mode() prompt.Mode {
	if o.Mode == "" {
		return prompt.ModeRewrite
	}
	return o.Mode
}

func (o Options) log(msg string, args ...any) {
	if o.Logger != nil {
		o.Logger.Info(msg, args...)
	}
}

// Result is the outcome of GenerateDocumentation.
type Result struct {
	Source string            // documented source
	Usage  llmcomplete.Usage // tokens used by the request
	Report updatedocs.Report // what was inserted (inject mode only)
}

// GenerateDocumentation sends content to the model and returns the documented source. A single request is made.
//
// Errors are returned in these situations:
//   - hard error (ex: no API key; cannot talk to the LLM). API failures wrap *llmcomplete.ResponseError.
//   - ErrEmptyResponse if, in rewrite mode, the model replied with nothing.
//   - ErrNoToolCalls or ErrNoDocstrings if, in inject mode, the model gave no usable docstrings.
func GenerateDocumentation(ctx context.Context, content string, options Options) (*Result, error) {
	if options.Model == "" {
		return nil, fmt.Errorf("docubot: model is required")
	}
	mode := options.mode()

	completer := options.Completer
	if completer == nil {
		client, err := llmcomplete.NewClient(options.Provider, "", "")
		if err != nil {
			return nil, err
		}
		if options.Logger != nil {
			client.SetLogger(options.Logger)
		}
		completer = client
	}

	payload, err := PreparePayload(content, mode)
	if err != nil {
		return nil, fmt.Errorf("docubot: build messages: %w", err)
	}

	options.log("generating documentation", "provider", options.Provider, "model", options.Model, "mode", mode, "bytes", len(content))

	resp, err := completer.Complete(ctx, llmcomplete.Request{
		Model:    options.Model,
		Messages: payload.Messages,
		Tools:    payload.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("docubot: %w", err)
	}

	result := &Result{Usage: resp.Usage}

	switch mode {
	case prompt.ModeInject:
		docstrings, err := collectDocstrings(resp.ToolCalls, options)
		if err != nil {
			return nil, err
		}
		result.Source, result.Report = updatedocs.InsertDocstringsWithReport(content, docstrings)
		logReport(options, result.Report)
	default:
		if strings.TrimSpace(resp.Content) == "" {
			return nil, ErrEmptyResponse
		}
		result.Source = unwrapCodeFence(resp.Content)
	}

	return result, nil
}

// docstringArgs are the arguments of a generate_one_docstring call.
type docstringArgs struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// collectDocstrings returns name -> body for every generate_one_docstring call in calls with a non-empty name and body. When a name appears more than once, the last
// call wins. Calls to other tools, and calls whose arguments aren't valid JSON, are logged and ignored.
func collectDocstrings(calls []llmcomplete.ToolCall, options Options) (map[string]string, error) {
	if len(calls) == 0 {
		return nil, ErrNoToolCalls
	}

	docstrings := make(map[string]string, len(calls))
	for _, call := range calls {
		if call.Name != prompt.DocstringToolName {
			options.log("ignoring call to unknown tool", "tool", call.Name)
			continue
		}
		var args docstringArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			options.log("ignoring tool call with invalid arguments", "err", err, "arguments", call.Arguments)
			continue
		}
		if args.Name == "" || args.Body == "" {
			continue
		}
		docstrings[args.Name] = args.Body
	}

	if len(docstrings) == 0 {
		return nil, ErrNoDocstrings
	}
	return docstrings, nil
}
