package diff

import (
	"fmt"
	"strings"
)

const noNewlineMarker = `\ No newline at end of file`

// Unified renders the diff of oldText to newText as a unified diff with contextSize lines of context around each change. Changes separated by at most 2*contextSize
// equal lines share a hunk. If color is true, headers and changed lines carry ANSI colors. Identical inputs render as "".
func Unified(oldText, newText string, fromFilename string, toFilename string, contextSize int, color bool) string {
	lines := Lines(oldText, newText)
	if !Changed(lines) {
		return ""
	}
	if contextSize < 0 {
		contextSize = 0
	}

	const (
		reset    = "\x1b[0m"
		red      = "\x1b[31m"
		green    = "\x1b[32m"
		magenta  = "\x1b[35m"
		cyanBold = "\x1b[1;36m"
	)
	colorize := func(s, code string) string {
		if !color {
			return s
		}
		return code + s + reset
	}

	// oldBefore[i] and newBefore[i] are the number of old/new lines that precede lines[i].
	oldBefore := make([]int, len(lines)+1)
	newBefore := make([]int, len(lines)+1)
	for i, l := range lines {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if l.Op != OpInsert {
			oldBefore[i+1]++
		}
		if l.Op != OpDelete {
			newBefore[i+1]++
		}
	}

	var b strings.Builder
	b.WriteString(colorize("--- "+fromFilename, cyanBold) + "\n")
	b.WriteString(colorize("+++ "+toFilename, cyanBold) + "\n")

	prevEnd := 0
	i := 0
	for {
		for i < len(lines) && lines[i].Op == OpEqual {
			i++
		}
		if i == len(lines) {
			break
		}

		start := max(i-contextSize, prevEnd)
		end := i
		for {
			for end < len(lines) && lines[end].Op != OpEqual {
				end++
			}
			next := end
			for next < len(lines) && lines[next].Op == OpEqual {
				next++
			}
			if next < len(lines) && next-end <= 2*contextSize {
				end = next
				continue
			}
			end = min(end+contextSize, len(lines))
			break
		}

		oldCount := oldBefore[end] - oldBefore[start]
		newCount := newBefore[end] - newBefore[start]
		header := fmt.Sprintf("@@ -%s +%s @@", hunkRange(oldBefore[start], oldCount), hunkRange(newBefore[start], newCount))
		b.WriteString(colorize(header, magenta) + "\n")

		for _, l := range lines[start:end] {
			switch l.Op {
			case OpInsert:
				b.WriteString(colorize("+"+l.Text, green) + "\n")
			case OpDelete:
				b.WriteString(colorize("-"+l.Text, red) + "\n")
			default:
				b.WriteString(" " + l.Text + "\n")
			}
			if l.NoEOL {
				b.WriteString(noNewlineMarker + "\n")
			}
		}

		prevEnd = end
		i = end
	}
	return b.String()
}

// hunkRange formats a unified-diff range. An empty range names the line before it, so an insertion at the top of a file is "0,0".
func hunkRange(before int, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", before)
	}
	return fmt.Sprintf("%d,%d", before+1, count)
}
