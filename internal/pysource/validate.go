package pysource

import (
	"bytes"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// The tree-sitter grammar is more permissive than CPython: its indentation scanner accepts bodies that aren't indented, it still knows Python 2 print/exec
// statements, and it doesn't order parameters. validate rejects those forms.

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// indent is a line's indentation measured the way the tokenizer does: col with 8-column tab stops, alt with every tab counting as 1. Two lines are at the same level
// only if both measures agree.
type indent struct {
	col int
	alt int
}

func (i indent) deeper(than indent) bool {
	return i.col > than.col && i.alt > than.alt
}

func syntaxErrorf(row int, format string, args ...any) error {
	return fmt.Errorf("%w: %s (line %d)", ErrSyntax, fmt.Sprintf(format, args...), row+1)
}

// validate checks root, which tree-sitter parsed without errors, for constructs CPython rejects.
func (b *builder) validate(root *sitter.Node) error {
	if err := b.checkStatements(root, indent{}, true); err != nil {
		return err
	}
	return b.validateNode(root)
}

func (b *builder) validateNode(n *sitter.Node) error {
	switch n.Type() {
	case "block":
		if parent := n.Parent(); parent != nil {
			header, _ := b.lineIndent(parent)
			if err := b.checkStatements(n, header, false); err != nil {
				return err
			}
		}
	case "elif_clause", "else_clause", "except_clause", "except_group_clause", "finally_clause":
		if err := b.checkClause(n); err != nil {
			return err
		}
	case "print_statement":
		if err := b.checkPython2Statement(n, "print"); err != nil {
			return err
		}
	case "exec_statement":
		if err := b.checkPython2Statement(n, "exec"); err != nil {
			return err
		}
	case "parameters", "lambda_parameters":
		if err := b.checkParameters(n); err != nil {
			return err
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child != nil {
			if err := b.validateNode(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkStatements checks the statements directly under a module or block. A block's statements are either all on its header's line (ex: "if x: a; b") or each on its
// own line, indented past header and all at the same level. Module statements start at column 0.
func (b *builder) checkStatements(n *sitter.Node, header indent, module bool) error {
	var prev *sitter.Node
	var level indent
	inline := false

	for i := 0; i < int(n.NamedChildCount()); i++ {
		stmt := n.NamedChild(i)
		if stmt == nil || stmt.Type() == "comment" {
			continue
		}
		row := int(stmt.StartPoint().Row)

		// Statements after a ';' share their predecessor's line.
		if prev != nil && row == nodeSpan(prev).End {
			prev = stmt
			continue
		}

		ind, first := b.lineIndent(stmt)
		switch {
		case prev == nil && !first && !module:
			inline = true
		case inline || !first:
			return syntaxErrorf(row, "unexpected indent")
		case prev == nil && module:
			if ind != (indent{}) {
				return syntaxErrorf(row, "unexpected indent")
			}
			level = ind
		case prev == nil:
			if !ind.deeper(header) {
				return syntaxErrorf(row, "expected an indented block")
			}
			level = ind
		case ind != level:
			return syntaxErrorf(row, "unindent does not match any outer indentation level")
		}
		prev = stmt
	}

	if prev == nil && !module {
		return syntaxErrorf(int(n.StartPoint().Row), "expected an indented block")
	}
	return nil
}

// checkClause checks that an elif/else/except/finally clause starts its own line at the same level as the statement it belongs to.
func (b *builder) checkClause(n *sitter.Node) error {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	ind, first := b.lineIndent(n)
	want, _ := b.lineIndent(parent)
	if !first || ind != want {
		return syntaxErrorf(int(n.StartPoint().Row), "invalid syntax")
	}
	return nil
}

// checkPython2Statement rejects print/exec statements unless what follows the keyword is parenthesized, which Python 3 reads as a call.
func (b *builder) checkPython2Statement(n *sitter.Node, keyword string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(n.Content(b.source), keyword))
	if strings.HasPrefix(rest, "(") {
		return nil
	}
	return syntaxErrorf(int(n.StartPoint().Row), "missing parentheses in call to '%s'", keyword)
}

// checkParameters enforces parameter order: positional, "/", positional-or-keyword, "*" or *args, keyword-only, then **kwargs. Within the first two groups, a
// parameter with a default can't be followed by one without.
func (b *builder) checkParameters(n *sitter.Node) error {
	var (
		count        int
		sawDefault   bool
		sawSlash     bool
		sawStar      bool
		sawKwargs    bool
		bareStarOpen bool
	)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		if p == nil || p.Type() == "comment" {
			continue
		}
		row := int(p.StartPoint().Row)
		if sawKwargs {
			return syntaxErrorf(row, "arguments cannot follow var-keyword argument")
		}

		text := strings.TrimSpace(p.Content(b.source))
		switch {
		case p.Type() == "positional_separator" || text == "/":
			if count == 0 {
				return syntaxErrorf(row, "at least one argument must precede /")
			}
			if sawSlash {
				return syntaxErrorf(row, "/ may appear only once")
			}
			if sawStar {
				return syntaxErrorf(row, "/ must be ahead of *")
			}
			sawSlash = true
		case strings.HasPrefix(text, "**"):
			if bareStarOpen {
				return syntaxErrorf(row, "named arguments must follow bare *")
			}
			sawKwargs = true
		case strings.HasPrefix(text, "*"):
			if sawStar {
				return syntaxErrorf(row, "* argument may appear only once")
			}
			sawStar = true
			bareStarOpen = text == "*"
		case p.Type() == "tuple_pattern" || p.Type() == "list_pattern":
			return syntaxErrorf(row, "tuple parameters are not supported")
		case p.Type() == "default_parameter" || p.Type() == "typed_default_parameter":
			sawDefault = true
			bareStarOpen = false
		default:
			if sawDefault && !sawStar {
				return syntaxErrorf(row, "parameter without a default follows parameter with a default")
			}
			bareStarOpen = false
		}
		count++
	}
	if bareStarOpen {
		return syntaxErrorf(int(n.StartPoint().Row), "named arguments must follow bare *")
	}
	return nil
}

// lineIndent returns the indentation of the line n starts on, and whether n is the first token on that line.
func (b *builder) lineIndent(n *sitter.Node) (indent, bool) {
	start := int(n.StartByte())
	lineStart := bytes.LastIndexByte(b.source[:start], '\n') + 1
	if lineStart == 0 && bytes.HasPrefix(b.source, utf8BOM) {
		lineStart = len(utf8BOM)
	}

	var ind indent
	for i := lineStart; i < start; i++ {
		switch b.source[i] {
		case ' ':
			ind.col++
			ind.alt++
		case '\t':
			ind.col = (ind.col/8 + 1) * 8
			ind.alt++
		case '\f':
			ind = indent{}
		default:
			return ind, false
		}
	}
	return ind, true
}
