package docubot

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// unwrapCodeFence returns the file inside a rewrite-mode reply. Models are asked for the bare file but often wrap it in a ```python fence, sometimes after a line of
// prose. If the reply starts with a fence, the first fenced block's content is returned; otherwise the first block tagged python (or py) is. A reply without such a
// fence is returned as-is. The result always ends with a newline.
func unwrapCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	src := []byte(trimmed)

	startsWithFence := strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")

	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var found *ast.FencedCodeBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if startsWithFence || isPythonInfo(string(fcb.Language(src))) {
			found = fcb
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	out := trimmed
	if found != nil {
		out = fencedCodeContent(src, found)
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

func isPythonInfo(lang string) bool {
	switch strings.ToLower(lang) {
	case "python", "py", "python3":
		return true
	default:
		return false
	}
}

// fencedCodeContent returns the verbatim lines of fcb.
func fencedCodeContent(src []byte, fcb *ast.FencedCodeBlock) string {
	lines := fcb.Lines()
	if lines == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
