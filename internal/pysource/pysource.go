// Package pysource parses Python source into the small structural view needed to edit docstrings in place: which modules, classes, and functions exist, where their body
// statements sit (by line), and whether each one already starts with a bare string literal.
//
// The parser never reconstructs text. Callers use the line positions it reports to edit the original bytes, which keeps everything outside the edited lines byte-for-byte
// identical. Line numbers are 0-based and count '\n' terminators only.
package pysource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax is wrapped by every error Parse returns for source that is not valid Python.
var ErrSyntax = errors.New("python syntax error")

// Kind is the kind of a Symbol. Async functions are KindFunction.
type Kind string

const (
	KindModule   Kind = "module"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
)

// Span is an inclusive range of 0-based line indices.
type Span struct {
	Start int
	End   int
}

// Statement is one statement in a symbol's body.
type Statement struct {
	Span
	IsStringLiteral bool // statement is a bare string literal (not an f-string or bytes literal), i.e. a docstring candidate
}

// Symbol is a module, class, or function definition.
type Symbol struct {
	Kind   Kind
	Name   string // local name; "" for the module
	Path   string // dotted scope path (ex: "Outer.method.inner"); "" for the module
	Async  bool
	Column int // 0-based byte column of the def/async/class keyword (0 for the module)

	// HeaderLine is the line of the def/async/class keyword. ColonLine is the line of the ':' that ends the header. Both are 0 for the module.
	HeaderLine int
	ColonLine  int

	Body     []Statement // statements in order; comments are not statements
	Children []*Symbol   // classes/functions whose nearest enclosing definition is this symbol
}

// Docstring returns the span of s's leading bare string literal, if its first body statement is one.
func (s *Symbol) Docstring() (Span, bool) {
	if len(s.Body) == 0 || !s.Body[0].IsStringLiteral {
		return Span{}, false
	}
	return s.Body[0].Span, true
}

// InlineBody reports whether s is a class/function whose first body statement shares the header line (ex: "def f(): pass").
func (s *Symbol) InlineBody() bool {
	if s.Kind == KindModule || len(s.Body) == 0 {
		return false
	}
	return s.Body[0].Start == s.ColonLine
}

// Tree is the parsed structure of one source file.
type Tree struct {
	Module *Symbol
}

// Walk calls fn for every class and function in t (the module itself is excluded), each exactly once, in source order (parents before children).
func (t *Tree) Walk(fn func(sym *Symbol)) {
	if t == nil || t.Module == nil {
		return
	}
	var visit func(syms []*Symbol)
	visit = func(syms []*Symbol) {
		for _, s := range syms {
			fn(s)
			visit(s.Children)
		}
	}
	visit(t.Module.Children)
}

// Symbols returns every class and function in Walk order.
func (t *Tree) Symbols() []*Symbol {
	var out []*Symbol
	t.Walk(func(sym *Symbol) {
		out = append(out, sym)
	})
	return out
}

// Parse parses source. If source is not valid Python (including invalid UTF-8), the returned error wraps ErrSyntax. Parse is safe for concurrent use.
func Parse(source []byte) (*Tree, error) {
	return ParseContext(context.Background(), source)
}

// ParseContext is Parse with a context that can cancel the underlying tree-sitter parse.
func ParseContext(ctx context.Context, source []byte) (*Tree, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: source is not valid UTF-8", ErrSyntax)
	}

	// A parser per call: tree-sitter parsers are not safe to share between goroutines.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	st, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer st.Close()

	root := st.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty syntax tree", ErrSyntax)
	}
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, fmt.Errorf("%w: invalid syntax near line %d", ErrSyntax, line+1)
	}

	b := &builder{source: source}
	if err := b.validate(root); err != nil {
		return nil, err
	}

	module := &Symbol{Kind: KindModule}
	module.Body = b.statements(root)
	b.collect(root, module)

	return &Tree{Module: module}, nil
}

// firstErrorLine returns the 0-based line of the first ERROR or MISSING node under n, or n's start line if none is found.
func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		return firstErrorLine(child)
	}
	return int(n.StartPoint().Row)
}

type builder struct {
	source []byte
}

// collect finds definitions under n and attaches them to scope. Definitions nested in compound statements (if/try/with/...) belong to the enclosing definition's scope.
func (b *builder) collect(n *sitter.Node, scope *Symbol) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_definition", "class_definition":
			sym := b.symbol(child, scope)
			scope.Children = append(scope.Children, sym)
			if body := child.ChildByFieldName("body"); body != nil {
				b.collect(body, sym)
			}
		default:
			b.collect(child, scope)
		}
	}
}

func (b *builder) symbol(n *sitter.Node, scope *Symbol) *Symbol {
	sym := &Symbol{
		Kind:       KindFunction,
		Column:     int(n.StartPoint().Column),
		HeaderLine: int(n.StartPoint().Row),
	}
	if n.Type() == "class_definition" {
		sym.Kind = KindClass
	} else {
		sym.Async = strings.HasPrefix(n.Content(b.source), "async")
	}

	if name := n.ChildByFieldName("name"); name != nil {
		sym.Name = name.Content(b.source)
	}
	if scope.Path == "" {
		sym.Path = sym.Name
	} else {
		sym.Path = scope.Path + "." + sym.Name
	}

	body := n.ChildByFieldName("body")
	sym.ColonLine = sym.HeaderLine
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if body != nil && child.StartByte() >= body.StartByte() {
			break
		}
		if child.Type() == ":" {
			sym.ColonLine = int(child.StartPoint().Row)
		}
	}
	if body != nil {
		sym.Body = b.statements(body)
	}
	return sym
}

// statements returns the statements directly under a module or block node.
func (b *builder) statements(n *sitter.Node) []Statement {
	var out []Statement
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, Statement{
			Span:            nodeSpan(child),
			IsStringLiteral: b.isBareStringStatement(child),
		})
	}
	return out
}

func nodeSpan(n *sitter.Node) Span {
	start := int(n.StartPoint().Row)
	end := int(n.EndPoint().Row)

	// A node that ends exactly at a line start owns nothing on that line.
	if n.EndPoint().Column == 0 && end > start {
		end--
	}
	return Span{Start: start, End: end}
}

func (b *builder) isBareStringStatement(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	return b.isPlainString(n.NamedChild(0))
}

// isPlainString reports whether n is a str literal (possibly implicitly concatenated). F-strings are expressions and bytes are not str, so neither counts.
func (b *builder) isPlainString(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "string":
		return !strings.ContainsAny(stringPrefix(n.Content(b.source)), "fFbB")
	case "concatenated_string":
		if n.NamedChildCount() == 0 {
			return false
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if !b.isPlainString(n.NamedChild(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// stringPrefix returns the characters of a string literal before its opening quote (ex: "rb" for rb'...').
func stringPrefix(literal string) string {
	if i := strings.IndexAny(literal, `"'`); i >= 0 {
		return literal[:i]
	}
	return literal
}
