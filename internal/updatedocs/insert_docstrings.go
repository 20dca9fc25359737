package updatedocs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codalotl/pydocify/internal/pysource"
)

// ModuleKey is the docstrings key that targets the module docstring.
const ModuleKey = "__module__"

// Report describes what InsertDocstringsWithReport did. Symbols are identified by dotted path (ModuleKey for the module).
type Report struct {
	Inserted  []string // symbols that had no docstring and got one
	Replaced  []string // symbols whose existing docstring was replaced
	Skipped   []string // matched symbols left alone because the edit would have touched other code (ex: "def f(): pass")
	Unmatched []string // keys that matched no symbol, sorted
	ParseErr  error    // non-nil if the source could not be parsed; the source was returned unchanged
}

// Changed reports whether any docstring was inserted or replaced.
func (r Report) Changed() bool {
	return len(r.Inserted) > 0 || len(r.Replaced) > 0
}

// InsertDocstrings returns source with docstrings inserted or replaced. docstrings maps a symbol name to its raw docstring text (see FormatDocstring); ModuleKey targets the
// module docstring.
//
// A bare name matches every class and function with that name, at any depth (two methods named "run" on different classes both get the same text). A dotted key (ex:
// "Outer.inner") matches only the symbol with that scope path. Keys that match nothing are ignored.
//
// Only the lines of replaced docstrings and the inserted blocks differ from source; every other byte is preserved. If source is not valid Python, it is returned unchanged.
func InsertDocstrings(source string, docstrings map[string]string) string {
	out, _ := InsertDocstringsWithReport(source, docstrings)
	return out
}

// InsertDocstringsWithReport is InsertDocstrings, also returning a Report of what changed.
func InsertDocstringsWithReport(source string, docstrings map[string]string) (string, Report) {
	var report Report

	tree, err := pysource.Parse([]byte(source))
	if err != nil {
		report.ParseErr = err
		return source, report
	}
	if len(docstrings) == 0 {
		return source, report
	}

	edits := planEdits(tree, SplitLines(source), docstrings, lineEnding(source), &report)
	if len(edits) == 0 {
		return source, report
	}

	out, err := ApplyLineEdits(source, edits)
	if err != nil {
		// Edits come from positions the parser reported for this exact source.
		panic(fmt.Errorf("planned docstring edit could not be applied: %w", err))
	}
	return out, report
}

// planEdits returns the deletes (existing docstring lines) and inserts (formatted blocks) for docstrings against tree, which was parsed from lines. Inserts are positioned by
// pre-deletion line index.
func planEdits(tree *pysource.Tree, lines []string, docstrings map[string]string, eol string, report *Report) []LineEdit {
	var edits []LineEdit
	matched := make(map[string]bool)

	if raw, ok := docstrings[ModuleKey]; ok {
		matched[ModuleKey] = true
		module := tree.Module
		span, hasDoc := module.Docstring()
		if hasDoc && sharesLastLine(module) {
			report.Skipped = append(report.Skipped, ModuleKey)
		} else {
			if hasDoc {
				edits = append(edits, deleteSpanEdits(span.Start, span.End)...)
				report.Replaced = append(report.Replaced, ModuleKey)
			} else {
				report.Inserted = append(report.Inserted, ModuleKey)
			}

			// Module docs always go first, even above a shebang or the deleted old docstring.
			edits = append(edits, LineEdit{
				EditOp: EditOpInsertAbove,
				Line:   0,
				Text:   withLineEnding(FormatDocstring(raw, 0), eol),
			})
		}
	}

	tree.Walk(func(sym *pysource.Symbol) {
		raw, key, ok := lookupDocstring(docstrings, sym)
		if !ok {
			return
		}
		matched[key] = true

		if len(sym.Body) == 0 || sym.InlineBody() || sharesLastLine(sym) {
			report.Skipped = append(report.Skipped, sym.Path)
			return
		}

		if span, ok := sym.Docstring(); ok {
			edits = append(edits, deleteSpanEdits(span.Start, span.End)...)
			report.Replaced = append(report.Replaced, sym.Path)
		} else {
			report.Inserted = append(report.Inserted, sym.Path)
		}

		edits = append(edits, LineEdit{
			EditOp: EditOpInsertAbove,
			Line:   sym.Body[0].Start,
			Text:   withLineEnding(formatDocstring(raw, bodyIndent(sym, lines)), eol),
		})
	})

	for key := range docstrings {
		if !matched[key] {
			report.Unmatched = append(report.Unmatched, key)
		}
	}
	sort.Strings(report.Unmatched)

	return edits
}

// lookupDocstring finds the docstring for sym, preferring a dotted-path key over a bare-name key. It returns the raw text and the key that matched.
func lookupDocstring(docstrings map[string]string, sym *pysource.Symbol) (string, string, bool) {
	if strings.Contains(sym.Path, ".") {
		if raw, ok := docstrings[sym.Path]; ok {
			return raw, sym.Path, true
		}
	}
	if raw, ok := docstrings[sym.Name]; ok {
		return raw, sym.Name, true
	}
	return "", "", false
}

// bodyIndent returns the indentation of sym's docstring: the first body statement's leading whitespace, tabs included. Otherwise it is one level (4 spaces) deeper than
// the def/class keyword.
func bodyIndent(sym *pysource.Symbol, lines []string) string {
	if first := sym.Body[0].Start; first < len(lines) {
		if ws := leadingWhitespace(lines[first]); ws != "" {
			return ws
		}
	}
	return strings.Repeat(" ", sym.Column+4)
}

// sharesLastLine reports whether sym's existing docstring ends on a line where its next statement starts (ex: `"""doc"""; x = 1`). Deleting those lines would delete code.
func sharesLastLine(sym *pysource.Symbol) bool {
	span, ok := sym.Docstring()
	if !ok || len(sym.Body) < 2 {
		return false
	}
	return sym.Body[1].Start == span.End
}
