package updatedocs

import (
	"strings"
)

const docstringDelimiter = `"""`

// FormatDocstring turns raw docstring text into a docstring block indented by indent spaces:
//
//	<indent>"""
//	<indent>content line
//
//	<indent>content line
//	<indent>"""
//
// raw is trimmed, and if it is already wrapped in one layer of triple quotes (common in LLM output), that layer is removed and the result trimmed again. Blank content lines
// are emitted as bare newlines without indentation. The block always ends with exactly one "\n". Empty content yields just the two delimiter lines.
//
// Content is not validated, with one exception: a literal """ inside the content is written as \""" so it cannot close the block early. Quotes already escaped
// with a backslash are left as they are.
func FormatDocstring(raw string, indent int) string {
	return formatDocstring(raw, strings.Repeat(" ", max(indent, 0)))
}

// formatDocstring is FormatDocstring with the indentation given verbatim (ex: "\t\t").
func formatDocstring(raw string, pad string) string {
	content := unwrapDocstring(raw)

	var sb strings.Builder
	sb.WriteString(pad + docstringDelimiter + "\n")
	if content != "" {
		for _, line := range strings.Split(content, "\n") {
			if strings.TrimSpace(line) == "" {
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(pad)
			sb.WriteString(escapeDelimiters(line))
			sb.WriteString("\n")
		}
	}
	sb.WriteString(pad + docstringDelimiter + "\n")
	return sb.String()
}

// escapeDelimiters backslash-escapes every unescaped quote in line that starts a """.
func escapeDelimiters(line string) string {
	if !strings.Contains(line, docstringDelimiter) {
		return line
	}
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			sb.WriteByte(c)
			i++
			sb.WriteByte(line[i])
		case c == '"' && strings.HasPrefix(line[i:], docstringDelimiter):
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// unwrapDocstring normalizes line endings, trims raw, and strips at most one layer of matching triple quotes.
func unwrapDocstring(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\r\n", "\n"))
	if len(s) < 6 {
		return s
	}
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return s
}
