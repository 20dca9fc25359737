package docubot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codalotl/pydocify/internal/llmcomplete"
	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"
)

// perMessageOverheadTokens approximates the role and delimiter tokens the chat format adds to each message.
const perMessageOverheadTokens = 4

// Estimate is a pre-flight estimate of a request's input.
type Estimate struct {
	Tokens    int
	InputCost float64
	Currency  string // "USD", or "Free/Local" if input tokens cost nothing
}

// Free reports whether the estimate is for a model that costs nothing to run.
func (e Estimate) Free() bool {
	return e.Currency != "USD"
}

// EstimateCost estimates the input tokens and cost of documenting content with provider/model in mode. Tokens are counted over the exact payload sent by
// GenerateDocumentation: every message's content, the tools serialized as JSON, and perMessageOverheadTokens per message. A model missing from the pricing registry
// is estimated as free.
func EstimateCost(content string, provider string, model string, mode prompt.Mode) (Estimate, error) {
	info, err := llmmodel.GetModelPrice(provider, model)
	if err != nil && !errors.Is(err, llmmodel.ErrUnknownModel) {
		return Estimate{}, err
	}

	payload, err := PreparePayload(content, mode)
	if err != nil {
		return Estimate{}, fmt.Errorf("docubot: build messages: %w", err)
	}

	var full strings.Builder
	for _, m := range payload.Messages {
		full.WriteString(m.Content)
	}
	if len(payload.Tools) > 0 {
		b, err := json.Marshal(payload.Tools)
		if err != nil {
			return Estimate{}, fmt.Errorf("docubot: serialize tools: %w", err)
		}
		full.Write(b)
	}

	tokens := llmcomplete.CountTokens(full.String()) + len(payload.Messages)*perMessageOverheadTokens

	return Estimate{
		Tokens:    tokens,
		InputCost: CalculateTokenCost(tokens, info.CostPer1MIn),
		Currency:  info.Currency(),
	}, nil
}

// CalculateTokenCost returns the cost of tokens at pricePerMillion. Non-positive prices cost nothing.
func CalculateTokenCost(tokens int, pricePerMillion float64) float64 {
	if pricePerMillion <= 0 {
		return 0
	}
	return float64(tokens) / 1_000_000 * pricePerMillion
}

// Cost is the actual cost of a completed request.
type Cost struct {
	Input  float64
	Output float64
	Total  float64
	Free   bool
}

// UsageCost prices usage with provider/model's pricing. A model missing from the pricing registry is free.
func UsageCost(usage llmcomplete.Usage, provider string, model string) Cost {
	info, _ := llmmodel.GetModelPrice(provider, model)
	if info.Free() {
		return Cost{Free: true}
	}
	in := CalculateTokenCost(usage.InputTokens, info.CostPer1MIn)
	out := CalculateTokenCost(usage.OutputTokens, info.CostPer1MOut)
	return Cost{Input: in, Output: out, Total: in + out}
}
