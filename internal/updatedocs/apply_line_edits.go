package updatedocs

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

type EditOp string

const (
	// Removes the line. The line's index stays valid for other edits; removal is resolved only when the output is assembled.
	EditOpDeleteLine EditOp = "delete_line"

	// Inserts Text verbatim above the line. Line may equal the line count, which appends at the end.
	EditOpInsertAbove EditOp = "insert_above"
)

type LineEdit struct {
	EditOp EditOp

	// 0-based line index in the ORIGINAL text
	Line int

	// Only for EditOpInsertAbove. Inserted as-is, so it should end with a line terminator.
	Text string
}

type LineEditError struct {
	LineEdit        // the offending edit
	Message  string // why LineEdit failed
}

func (e *LineEditError) Error() string {
	return e.Message
}

// SplitLines splits text into lines, each keeping its terminator ("\n" or "\r\n"). A final line without a terminator is kept as-is. "" has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// bufferLine is a line of the buffer or a spliced-in block. A deleted line is a tombstone: it keeps its slot until output is assembled.
type bufferLine struct {
	text    string
	deleted bool
}

// ApplyLineEdits applies edits to text and returns the new text. All edits are applied simultaneously: Line always refers to the line index in the original text, so callers
// never account for shifts caused by other edits. Deleting the same line twice is the same as deleting it once. Several insertions may target the same line; they are applied
// highest index first, and among equal indices in the order given, so each lands above the ones before it.
//
// An error (*LineEditError) is returned for an unknown op or an index outside the text ([0, lines) for deletes, [0, lines] for inserts).
func ApplyLineEdits(text string, edits []LineEdit) (string, error) {
	lines := SplitLines(text)
	buf := make([]bufferLine, len(lines))
	for i, l := range lines {
		buf[i] = bufferLine{text: l}
	}

	var inserts []LineEdit
	for _, edit := range edits {
		switch edit.EditOp {
		case EditOpDeleteLine:
			if edit.Line < 0 || edit.Line >= len(lines) {
				return "", &LineEditError{LineEdit: edit, Message: fmt.Sprintf("delete of line %d is outside the text (%d lines)", edit.Line, len(lines))}
			}
			buf[edit.Line].deleted = true
		case EditOpInsertAbove:
			if edit.Line < 0 || edit.Line > len(lines) {
				return "", &LineEditError{LineEdit: edit, Message: fmt.Sprintf("insert above line %d is outside the text (%d lines)", edit.Line, len(lines))}
			}
			inserts = append(inserts, edit)
		default:
			return "", &LineEditError{LineEdit: edit, Message: fmt.Sprintf("unknown edit op %q", edit.EditOp)}
		}
	}

	// Highest index first, so splicing never moves a slot that a later insert still refers to.
	sort.SliceStable(inserts, func(i, j int) bool {
		return inserts[i].Line > inserts[j].Line
	})
	for _, ins := range inserts {
		buf = slices.Insert(buf, ins.Line, bufferLine{text: ins.Text})
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, l := range buf {
		if !l.deleted {
			sb.WriteString(l.text)
		}
	}
	return sb.String(), nil
}

// deleteSpanEdits returns one delete edit per line in [start, end].
func deleteSpanEdits(start, end int) []LineEdit {
	var edits []LineEdit
	for i := start; i <= end; i++ {
		edits = append(edits, LineEdit{EditOp: EditOpDeleteLine, Line: i})
	}
	return edits
}

// lineEnding returns "\r\n" if the first line of text ends with it, and "\n" otherwise.
func lineEnding(text string) string {
	i := strings.IndexByte(text, '\n')
	if i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// withLineEnding rewrites the "\n" terminators of block to eol.
func withLineEnding(block, eol string) string {
	if eol == "\n" {
		return block
	}
	return strings.ReplaceAll(block, "\n", eol)
}

// leadingWhitespace returns the spaces and tabs that start line.
func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
