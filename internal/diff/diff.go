// Package diff computes line diffs between an original and a documented source file and renders them as unified diffs.
//
// Lines are split on '\n'. A trailing '\r' is kept out of Line.Text so CRLF files render cleanly, and a last line without a terminator is flagged with NoEOL so
// "x" and "x\n" still show up as a change.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is an operation from old text to new text.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// Line is one line of a diff.
type Line struct {
	Op    Op
	Text  string // line content without its terminator
	NoEOL bool   // the line is the last line of its side and has no '\n'
}

// Lines diffs oldText to newText line by line. Equal lines appear once; changed regions list deletions before insertions.
func Lines(oldText, newText string) []Line {
	dmp := diffmatchpatch.New()
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(rOld, rNew, false))

	var lines []Line
	for _, d := range diffs {
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			op = OpEqual
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		for _, r := range d.Text {
			idx := int(r)
			if idx < 0 || idx >= len(lineArray) {
				continue
			}
			lines = append(lines, newLine(op, lineArray[idx]))
		}
	}
	return lines
}

func newLine(op Op, raw string) Line {
	if !strings.HasSuffix(raw, "\n") {
		return Line{Op: op, Text: raw, NoEOL: true}
	}
	text := strings.TrimSuffix(raw, "\n")
	return Line{Op: op, Text: strings.TrimSuffix(text, "\r")}
}

// Summary counts the inserted and deleted lines in lines.
func Summary(lines []Line) (added int, removed int) {
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			added++
		case OpDelete:
			removed++
		}
	}
	return added, removed
}

// Changed reports whether lines contain any insertion or deletion.
func Changed(lines []Line) bool {
	added, removed := Summary(lines)
	return added+removed > 0
}
