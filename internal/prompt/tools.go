package prompt

// DocstringToolName is the name of the function tool the model calls in ModeInject.
const DocstringToolName = "generate_one_docstring"

// Tool is a function tool offered to the model, in the shape of the OpenAI chat completions API (it marshals to that JSON).
type Tool struct {
	Type     string       `json:"type"` // always "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction describes a function tool. Parameters is a JSON schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Strict      bool           `json:"strict"`
	Parameters  map[string]any `json:"parameters"`
}

// DocstringTool returns the generate_one_docstring tool, which takes the target symbol's name ("__module__" for the module) and the docstring body. Each call returns a new
// value, so callers may modify it.
func DocstringTool() Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        DocstringToolName,
			Description: "Submits a single generated docstring for a specific function or class, or for the module-level documentation in Python code.",
			Strict:      true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "The exact name of the function or class. For module-level docstrings, use '__module__'.",
					},
					"body": map[string]any{
						"type":        "string",
						"description": "The full NumPy-style docstring content.",
					},
				},
				"required":             []string{"name", "body"},
				"additionalProperties": false,
			},
		},
	}
}

// ToolsForMode returns the tools offered to the model in mode (nil unless ModeInject).
func ToolsForMode(mode Mode) []Tool {
	if mode == ModeInject {
		return []Tool{DocstringTool()}
	}
	return nil
}
