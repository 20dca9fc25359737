package llmcomplete

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/codalotl/pydocify/internal/prompt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

// newChatCompletionParams converts req to the OpenAI chat completions request.
func newChatCompletionParams(req Request) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case prompt.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case prompt.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("llmcomplete: unsupported role %q", msg.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	for _, tool := range req.Tools {
		function := shared.FunctionDefinitionParam{
			Name:       tool.Function.Name,
			Parameters: shared.FunctionParameters(tool.Function.Parameters),
			Strict:     param.NewOpt(tool.Function.Strict),
		}
		if tool.Function.Description != "" {
			function.Description = param.NewOpt(tool.Function.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(function))
	}

	return params, nil
}

// sendOpenAI sends params once. Errors worth retrying are marked with ErrRetryable.
func (c *Client) sendOpenAI(ctx context.Context, params openai.ChatCompletionNewParams) (*Response, error) {
	var httpResp *http.Response
	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithResponseInto(&httpResp))
	if err == nil {
		if resp == nil {
			return nil, fmt.Errorf("chat completion response is nil")
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion response has no choices")
		}

		choice := resp.Choices[0]
		text := choice.Message.Content
		if text == "" {
			text = choice.Message.Refusal
		}

		out := &Response{
			RequestID:  resp.ID,
			Model:      resp.Model,
			StopReason: choice.FinishReason,
			Content:    text,
			Usage: Usage{
				TotalTokens:  int(resp.Usage.TotalTokens),
				InputTokens:  int(resp.Usage.PromptTokens),
				OutputTokens: int(resp.Usage.CompletionTokens),
			},
		}
		if resp.Usage.JSON.CompletionTokensDetails.Valid() {
			out.Usage.ReasoningTokens = int(resp.Usage.CompletionTokensDetails.ReasoningTokens)
		}
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	responseErr := &ResponseError{Err: err, Message: err.Error()}
	retErr := error(responseErr)

	var apiErr *openai.Error
	var netErr net.Error
	switch {
	case errors.As(err, &apiErr):
		responseErr.StatusCode = apiErr.StatusCode
		if apiErr.Message != "" {
			responseErr.Message = apiErr.Message
		}
		if apiErr.StatusCode == http.StatusTooManyRequests || (apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599) {
			retErr = makeRetryable(responseErr)
		}
	case errors.As(err, &netErr):
		retErr = makeRetryable(responseErr)
	}

	if responseErr.StatusCode == 0 && httpResp != nil {
		responseErr.StatusCode = httpResp.StatusCode
	}

	return nil, retErr
}
