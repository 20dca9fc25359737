package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Mode selects how the model is asked to document a file.
type Mode string

const (
	// ModeRewrite asks the model to reply with the whole file, docstrings added.
	ModeRewrite Mode = "rewrite"

	// ModeInject asks the model to call DocstringToolName once per symbol. The docstrings are then inserted into the original source locally.
	ModeInject Mode = "inject"
)

// AllModes are all modes, default first.
var AllModes = []Mode{ModeRewrite, ModeInject}

// ParseMode returns the mode named by s, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want rewrite or inject)", s)
}

// Role is the author of a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat message.
type Message struct {
	Role    Role
	Content string
}

//go:embed templates/docstring_generator.json
var docstringGeneratorJSON []byte

type modePrompt struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`

	userTmpl *template.Template
}

var modePrompts map[Mode]*modePrompt

func init() {
	prompts, err := parseTemplates(docstringGeneratorJSON)
	if err != nil {
		panic(err)
	}
	modePrompts = prompts
}

// parseTemplates parses a template document: mode -> {system_prompt, user_prompt}. user_prompt is a text/template; the file content is {{.RawText}}. The rewrite
// mode is required since it's the fallback.
func parseTemplates(data []byte) (map[Mode]*modePrompt, error) {
	var raw map[string]*modePrompt
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prompt templates invalid: %w", err)
	}

	out := make(map[Mode]*modePrompt, len(raw))
	for name, p := range raw {
		if p == nil || p.SystemPrompt == "" || p.UserPrompt == "" {
			return nil, fmt.Errorf("prompt template %q: system_prompt and user_prompt are required", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(p.UserPrompt)
		if err != nil {
			return nil, fmt.Errorf("prompt template %q: %w", name, err)
		}
		p.userTmpl = tmpl
		out[Mode(name)] = p
	}
	if _, ok := out[ModeRewrite]; !ok {
		return nil, fmt.Errorf("prompt templates: missing %q", ModeRewrite)
	}
	return out, nil
}

// BuildMessages returns the system and user messages asking the model to document content in the given mode. Modes without a template fall back to ModeRewrite.
func BuildMessages(content string, mode Mode) ([]Message, error) {
	return buildMessages(modePrompts, content, mode)
}

func buildMessages(prompts map[Mode]*modePrompt, content string, mode Mode) ([]Message, error) {
	p, ok := prompts[mode]
	if !ok {
		p = prompts[ModeRewrite]
	}

	var buf bytes.Buffer
	if err := p.userTmpl.Execute(&buf, map[string]any{"RawText": content}); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", mode, err)
	}

	return []Message{
		{Role: RoleSystem, Content: p.SystemPrompt},
		{Role: RoleUser, Content: buf.String()},
	}, nil
}
