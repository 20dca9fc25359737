package updatedocs

import (
	"fmt"

	"github.com/codalotl/pydocify/internal/pysource"
)

// StripDocstrings removes the docstring of the module and of every class and function in source, and returns the new source along with the paths of the stripped symbols
// (ModuleKey for the module), in source order. Only docstring lines change: if a class or function body consisted of nothing but its docstring, a "pass" line with the docstring's
// indentation takes its place so the result still parses. Docstrings that share a line with other code (ex: def f(): """doc""") are left alone.
//
// Unlike InsertDocstrings, source that is not valid Python is an error (wrapping pysource.ErrSyntax).
func StripDocstrings(source string) (string, []string, error) {
	tree, err := pysource.Parse([]byte(source))
	if err != nil {
		return "", nil, fmt.Errorf("strip docstrings: %w", err)
	}

	lines := SplitLines(source)
	eol := lineEnding(source)

	var edits []LineEdit
	var stripped []string

	strip := func(sym *pysource.Symbol, path string) {
		span, ok := sym.Docstring()
		if !ok || sym.InlineBody() || sharesLastLine(sym) {
			return
		}
		edits = append(edits, deleteSpanEdits(span.Start, span.End)...)
		if len(sym.Body) == 1 && sym.Kind != pysource.KindModule {
			edits = append(edits, LineEdit{
				EditOp: EditOpInsertAbove,
				Line:   span.Start,
				Text:   leadingWhitespace(lines[span.Start]) + "pass" + eol,
			})
		}
		stripped = append(stripped, path)
	}

	strip(tree.Module, ModuleKey)
	tree.Walk(func(sym *pysource.Symbol) {
		strip(sym, sym.Path)
	})

	if len(edits) == 0 {
		return source, nil, nil
	}

	out, err := ApplyLineEdits(source, edits)
	if err != nil {
		return "", nil, fmt.Errorf("strip docstrings: %w", err)
	}
	return out, stripped, nil
}
