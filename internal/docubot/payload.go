package docubot

import (
	"github.com/codalotl/pydocify/internal/prompt"
)

// Payload is exactly what is sent to the model for one file: messages, plus tools in inject mode.
type Payload struct {
	Messages []prompt.Message
	Tools    []prompt.Tool
}

// PreparePayload returns the payload asking the model to document content in mode. Both GenerateDocumentation and EstimateCost use it, so estimates match real requests.
func PreparePayload(content string, mode prompt.Mode) (Payload, error) {
	messages, err := prompt.BuildMessages(content, mode)
	if err != nil {
		return Payload{}, err
	}
	return Payload{
		Messages: messages,
		Tools:    prompt.ToolsForMode(mode),
	}, nil
}
