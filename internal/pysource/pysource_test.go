package pysource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dedent removes the common leading indentation from s, drops leading/trailing blank lines, and ends the result with exactly one newline.
func dedent(s string) string {
	s = strings.Trim(s, "\n")
	lines := strings.Split(s, "\n")

	min := -1
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			lines[i] = ""
			continue
		}
		indent := len(line) - len(trimmed)
		if min == -1 || indent < min {
			min = indent
		}
	}

	if min > 0 {
		for i, line := range lines {
			if len(line) >= min {
				lines[i] = line[min:]
			}
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
}

func names(t *Tree) []string {
	var out []string
	t.Walk(func(sym *Symbol) {
		out = append(out, sym.Path)
	})
	return out
}

func TestParseModuleDocstring(t *testing.T) {
	src := dedent(`
		"""Module docs.

		More.
		"""

		import os
	`)
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	span, ok := tree.Module.Docstring()
	require.True(t, ok)
	assert.Equal(t, Span{Start: 0, End: 3}, span)
	assert.Len(t, tree.Module.Body, 2)
	assert.Equal(t, KindModule, tree.Module.Kind)
	assert.Empty(t, tree.Symbols())
}

func TestParseFunctionsAndClasses(t *testing.T) {
	src := dedent(`
		import functools


		class Greeter:
		    """Says hello."""

		    def __init__(self, name):
		        self.name = name

		    @functools.cache
		    def greet(self):
		        # leading comment
		        return "hi " + self.name


		async def fetch(url):
		    def inner():
		        pass
		    return inner


		if True:
		    def conditional():
		        pass
	`)
	tree, err := Parse([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"Greeter", "Greeter.__init__", "Greeter.greet", "fetch", "fetch.inner", "conditional"}, names(tree))

	syms := tree.Symbols()
	byPath := make(map[string]*Symbol)
	for _, s := range syms {
		byPath[s.Path] = s
	}

	greeter := byPath["Greeter"]
	assert.Equal(t, KindClass, greeter.Kind)
	assert.Equal(t, 0, greeter.Column)
	assert.Equal(t, 3, greeter.HeaderLine)
	doc, ok := greeter.Docstring()
	require.True(t, ok)
	assert.Equal(t, Span{Start: 4, End: 4}, doc)

	greet := byPath["Greeter.greet"]
	assert.Equal(t, KindFunction, greet.Kind)
	assert.Equal(t, "greet", greet.Name)
	assert.Equal(t, 4, greet.Column)
	assert.Equal(t, 10, greet.HeaderLine, "header is the def line, not the decorator line")
	require.Len(t, greet.Body, 1)
	assert.Equal(t, 12, greet.Body[0].Start, "comments are not statements")
	_, ok = greet.Docstring()
	assert.False(t, ok)

	fetch := byPath["fetch"]
	assert.True(t, fetch.Async)
	assert.Equal(t, 0, fetch.Column)

	inner := byPath["fetch.inner"]
	assert.Equal(t, 4, inner.Column)
	assert.Equal(t, "inner", inner.Name)

	cond := byPath["conditional"]
	assert.Equal(t, 4, cond.Column)
}

func TestParseStringLiteralKinds(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		literal bool
	}{
		{name: "triple double", body: `"""doc"""`, literal: true},
		{name: "triple single", body: `'''doc'''`, literal: true},
		{name: "single quoted", body: `"doc"`, literal: true},
		{name: "raw", body: `r"""doc\d"""`, literal: true},
		{name: "unicode prefix", body: `u"doc"`, literal: true},
		{name: "concatenated", body: `"a" "b"`, literal: true},
		{name: "f-string", body: `f"doc {x}"`, literal: false},
		{name: "bytes", body: `b"doc"`, literal: false},
		{name: "number", body: `42`, literal: false},
		{name: "call", body: `print("doc")`, literal: false},
		{name: "string expression", body: `"a" + "b"`, literal: false},
		{name: "assignment", body: `x = "doc"`, literal: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := "def f():\n    " + tc.body + "\n    pass\n"
			tree, err := Parse([]byte(src))
			require.NoError(t, err)
			syms := tree.Symbols()
			require.Len(t, syms, 1)
			_, ok := syms[0].Docstring()
			assert.Equal(t, tc.literal, ok)
		})
	}
}

func TestParseMultilineDocstringSpan(t *testing.T) {
	src := dedent(`
		def f(
		    a,
		    b,
		):
		    """
		    Summary.

		    Details.
		    """
		    return a + b
	`)
	tree, err := Parse([]byte(src))
	require.NoError(t, err)
	f := tree.Symbols()[0]
	assert.Equal(t, 3, f.ColonLine)
	assert.False(t, f.InlineBody())
	doc, ok := f.Docstring()
	require.True(t, ok)
	assert.Equal(t, Span{Start: 4, End: 8}, doc)
	assert.Equal(t, Span{Start: 9, End: 9}, f.Body[1].Span)
}

func TestParseInlineBody(t *testing.T) {
	tree, err := Parse([]byte("def f(): pass\n\nclass C: x = 1\n"))
	require.NoError(t, err)
	for _, sym := range tree.Symbols() {
		assert.True(t, sym.InlineBody(), sym.Name)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []string{
		"def my_func(\n    pass\n",
		"class :\n    pass\n",
		"def f():\npass\n",
		"class A:\nreturn\n",
		"def f():\n    x = 1\n  y = 2\n",
		"  x = 1\n",
		"if x:\n    a = 1\n  else:\n    a = 2\n",
		"def f(): x = 1\n    y = 2\n",
		"class A:\n        x = 1\n\tdef f(self):\n\t\tpass\n",
		"x = (1,\n",
		"\xff\xfe = 1\n",
		"print \"hi\"\n",
		"print >>f, \"hi\"\n",
		"exec \"x = 1\"\n",
		"def f(a=1, b):\n    pass\n",
		"def f(*a, *b):\n    pass\n",
		"def f(**kw, a):\n    pass\n",
		"def f(*):\n    pass\n",
		"def f(a, *, b, /):\n    pass\n",
		"g = lambda a=1, b: a\n",
	}
	for _, src := range tests {
		_, err := Parse([]byte(src))
		assert.ErrorIs(t, err, ErrSyntax, "source: %q", src)
	}
}

func TestParseAcceptsValidLayouts(t *testing.T) {
	tests := map[string]string{
		"tabs":                 "class A:\n\tdef f(self):\n\t\tpass\n",
		"two spaces":           "def f():\n  if x:\n    return 1\n  return 2\n",
		"semicolons":           "x = 1; y = 2\ndef f():\n    a = 1; b = 2\n",
		"inline bodies":        "if x: a = 1; b = 2\nelif y: a = 2\nelse: a = 3\n",
		"clauses":              "for i in x:\n    pass\nelse:\n    pass\ntry:\n    pass\nexcept E:\n    pass\nelse:\n    pass\nfinally:\n    pass\n",
		"multi-line header":    "def f(\n    a,\n    b=1,\n    *args,\n    c,\n    **kw,\n):\n    pass\n",
		"parameter kinds":      "def f(a, /, b, *, c=1, d):\n    pass\n\ng = lambda *a, **k: 0\n",
		"continuation":         "def f():\n    x = 1 + \\\n        2\n    return x\n",
		"blank lines":          "def f():\n    x = 1\n\n        \n    return x\n",
		"multi-level dedent":   "class A:\n    def f(self):\n        if x:\n            pass\nx = 1\n",
		"decorators":           "@dec\nclass A:\n    @staticmethod\n    def f():\n        pass\n",
		"print call":           "print(\"hi\")\nprint (\"a\", \"b\")\n",
		"multi-line statement": "x = [\n  1,\n      2,\n]\ny = 3\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.NoError(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tree, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, tree.Module.Body)
	_, ok := tree.Module.Docstring()
	assert.False(t, ok)
}

func TestParseConcurrent(t *testing.T) {
	src := []byte("def a():\n    '''x'''\n\ndef b():\n    pass\n")
	done := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			tree, err := Parse(src)
			if err != nil {
				done <- nil
				return
			}
			done <- names(tree)
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, []string{"a", "b"}, <-done)
	}
}
