package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codalotl/pydocify/internal/llmcomplete"
	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptSource = "def add(a, b):\n    return a + b\n"

const documentedSource = "def add(a, b):\n    \"\"\"Add a and b.\"\"\"\n    return a + b\n"

type runResult struct {
	code   int
	err    error
	out    string
	errOut string
}

// setupWorkspace chdirs into a fresh temp dir with no user config, no PYDOCIFY_* env, and my_script.py.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{"PROVIDER", "MODEL", "MODE", "OUTPUT_DIR", "PRICING_FILE", "OPENAI_API_KEY", "LOG_FILE"} {
		t.Setenv("PYDOCIFY_"+k, "")
	}
	t.Chdir(dir)
	t.Cleanup(func() { _ = llmmodel.ConfigurePricingFile("") })
	writeFile(t, "my_script.py", scriptSource)
	return dir
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runCLI(t *testing.T, opts RunOptions, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	opts.Out = &out
	opts.Err = &errOut
	if opts.In == nil {
		opts.In = strings.NewReader("")
	}
	code, err := Run(append([]string{"pydocify"}, args...), &opts)
	return runResult{code: code, err: err, out: out.String(), errOut: errOut.String()}
}

func rewriteCompleter() *llmcomplete.MockCompleter {
	return llmcomplete.NewMockCompleter(&llmcomplete.Response{
		Content: "```python\n" + documentedSource + "```",
		Usage:   llmcomplete.Usage{InputTokens: 1000, OutputTokens: 500, ReasoningTokens: 5, TotalTokens: 1500},
	})
}

func TestRun_Help(t *testing.T) {
	setupWorkspace(t)
	res := runCLI(t, RunOptions{}, "-h")
	require.NoError(t, res.err)
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.out, "pydocify FILE")
	assert.Contains(t, res.out, "strip")
	assert.Empty(t, res.errOut)
}

func TestRun_Version(t *testing.T) {
	setupWorkspace(t)
	res := runCLI(t, RunOptions{}, "--version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, Version)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no file", args: nil, want: "expected exactly one FILE argument"},
		{name: "missing file", args: []string{"nope.py", "--provider", "openai", "--model", "gpt-5-mini"}, want: `"nope.py" does not exist`},
		{name: "directory", args: []string{".", "--provider", "openai", "--model", "gpt-5-mini"}, want: "is a directory"},
		{name: "unknown flag", args: []string{"my_script.py", "--bogus"}, want: "unknown flag"},
		{name: "missing provider and model", args: []string{"my_script.py"}, want: "--provider is required"},
		{name: "bad provider", args: []string{"my_script.py", "--provider", "acme", "--model", "x"}, want: "invalid value for --provider"},
		{name: "bad mode", args: []string{"my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "--mode", "summarize"}, want: "invalid value for --mode"},
		{name: "strip missing file", args: []string{"strip", "non_existent_file.py"}, want: "invalid value for FILE"},
		{name: "clean with args", args: []string{"clean", "extra"}, want: "unexpected arguments"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setupWorkspace(t)
			res := runCLI(t, RunOptions{Completer: rewriteCompleter()}, tc.args...)
			require.Error(t, res.err)
			assert.Equal(t, 2, res.code)
			assert.Contains(t, res.errOut, tc.want)
			assert.Contains(t, res.errOut, "--help")
		})
	}
}

func TestRun_GenerateRewrite(t *testing.T) {
	setupWorkspace(t)
	mock := rewriteCompleter()

	res := runCLI(t, RunOptions{Completer: mock}, "my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "--yes", "--diff")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, 0, res.code)

	b, err := os.ReadFile(filepath.Join("ai_output", "my_script.doc.py"))
	require.NoError(t, err)
	assert.Equal(t, documentedSource, string(b))

	assert.Contains(t, res.out, "pydocify: Checking my_script.py in REWRITE mode")
	assert.Contains(t, res.out, "Estimation (Input Only):")
	assert.Contains(t, res.out, "Est. Cost: $")
	assert.NotContains(t, res.out, "Do you want to proceed?")
	assert.Contains(t, res.out, "Successfully generated documentation!")
	assert.Contains(t, res.out, "Output saved to: "+filepath.Join("ai_output", "my_script.doc.py"))
	assert.Contains(t, res.out, "+    \"\"\"Add a and b.\"\"\"\n")
	assert.Contains(t, res.out, "   Input Tokens:  1000\n   Output Tokens: 500\n   (Includes 5 reasoning tokens)\n   Total Cost:    $0.00125\n")

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "gpt-5-mini", reqs[0].Model)
	assert.Contains(t, reqs[0].Messages[len(reqs[0].Messages)-1].Content, scriptSource)
}

func TestRun_GenerateInjectFreeProvider(t *testing.T) {
	setupWorkspace(t)
	mock := llmcomplete.NewMockCompleter(&llmcomplete.Response{
		ToolCalls: []llmcomplete.ToolCall{
			{ID: "1", Name: prompt.DocstringToolName, Arguments: `{"name": "add", "body": "Add a and b."}`},
			{ID: "2", Name: prompt.DocstringToolName, Arguments: `{"name": "sub", "body": "Nope."}`},
		},
		Usage: llmcomplete.Usage{InputTokens: 300, OutputTokens: 40},
	})

	res := runCLI(t, RunOptions{Completer: mock, In: strings.NewReader("yes\n")},
		"my_script.py", "--provider", "Ollama", "--model", "llama3.1:8b", "--mode", "INJECT", "--output-dir", "out")
	require.NoError(t, res.err, res.errOut)

	b, err := os.ReadFile(filepath.Join("out", "my_script.doc.py"))
	require.NoError(t, err)
	assert.Equal(t, "def add(a, b):\n    \"\"\"\n    Add a and b.\n    \"\"\"\n    return a + b\n", string(b))

	assert.Contains(t, res.out, "in INJECT mode")
	assert.Contains(t, res.out, "Est. Cost: Free (Local/Ollama)")
	assert.Contains(t, res.out, "Do you want to proceed? [y/n]: ")
	assert.Contains(t, res.out, "Applied 1 docstring(s) (1 new, 0 replaced)")
	assert.Contains(t, res.out, "no such symbol: sub")
	assert.Contains(t, res.out, "   Output Tokens: 40\n   Total Cost:    Free\n")
	assert.NotContains(t, res.out, "Input Tokens:")

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
}

func TestRun_GenerateDeclined(t *testing.T) {
	for name, input := range map[string]string{"no": "n\n", "end of input": ""} {
		t.Run(name, func(t *testing.T) {
			setupWorkspace(t)
			mock := rewriteCompleter()

			res := runCLI(t, RunOptions{Completer: mock, In: strings.NewReader(input)}, "my_script.py", "--provider", "openai", "--model", "gpt-5-mini")
			require.NoError(t, res.err)
			assert.Equal(t, 0, res.code)
			assert.Contains(t, res.out, "Aborted by user.")
			assert.Empty(t, mock.Requests())
			assert.NoDirExists(t, "ai_output")
		})
	}
}

func TestRun_GenerateFailures(t *testing.T) {
	t.Run("unpriced model", func(t *testing.T) {
		setupWorkspace(t)
		res := runCLI(t, RunOptions{Completer: rewriteCompleter()}, "my_script.py", "--provider", "openai", "--model", "gpt-9", "-y")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.errOut, `model "gpt-9" is not configured for provider "openai"`)
	})

	t.Run("missing api key", func(t *testing.T) {
		setupWorkspace(t)
		t.Setenv("OPENAI_API_KEY", "")
		res := runCLI(t, RunOptions{}, "my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "-y")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.errOut, "OPENAI_API_KEY environment variable is not set")
	})

	t.Run("model error", func(t *testing.T) {
		setupWorkspace(t)
		mock := llmcomplete.NewMockCompleter(&llmcomplete.Response{Content: "   "})
		res := runCLI(t, RunOptions{Completer: mock}, "my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "-y")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.errOut, "generate documentation")
		assert.NoFileExists(t, filepath.Join("ai_output", "my_script.doc.py"))
	})
}

func TestRun_ConfigSources(t *testing.T) {
	t.Run("project config supplies provider and model", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, ".pydocify.json", `{"provider": "openai", "model": "gpt-5-mini", "output_dir": "docs_out"}`)
		require.NoError(t, os.Mkdir("sub", 0o755))
		t.Chdir("sub")
		writeFile(t, "my_script.py", scriptSource)

		res := runCLI(t, RunOptions{Completer: rewriteCompleter()}, "my_script.py", "-y")
		require.NoError(t, res.err, res.errOut)
		assert.FileExists(t, filepath.Join("docs_out", "my_script.doc.py"))
	})

	t.Run("env beats user config and flags beat env", func(t *testing.T) {
		dir := setupWorkspace(t)
		writeFile(t, filepath.Join(dir, ".pydocify", "config.json"), `{"provider": "openai", "model": "gpt-9"}`)
		t.Setenv("PYDOCIFY_MODEL", "gpt-5-nano")
		t.Setenv("PYDOCIFY_OUTPUT_DIR", "from_env")

		mock := rewriteCompleter()
		res := runCLI(t, RunOptions{Completer: mock}, "my_script.py", "-y", "--output-dir", "from_flag")
		require.NoError(t, res.err, res.errOut)
		assert.Equal(t, "gpt-5-nano", mock.Requests()[0].Model)
		assert.FileExists(t, filepath.Join("from_flag", "my_script.doc.py"))
	})

	t.Run("pricing override", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, "prices.json", `{"openai": {"my-model": {"input_cost_per_million": 1000000, "output_cost_per_million": 0}}}`)

		res := runCLI(t, RunOptions{}, "estimate", "my_script.py", "--provider", "openai", "--model", "my-model", "--pricing", "prices.json")
		require.NoError(t, res.err, res.errOut)
		assert.Contains(t, res.out, "Est. Cost: $")

		res = runCLI(t, RunOptions{}, "estimate", "my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "--pricing", "prices.json")
		assert.Equal(t, 1, res.code)
	})

	t.Run("broken pricing file falls back to built-in prices", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, "prices.json", `{not json`)
		t.Setenv("PYDOCIFY_PRICING_FILE", "prices.json")

		res := runCLI(t, RunOptions{}, "estimate", "my_script.py", "--provider", "openai", "--model", "gpt-5-mini")
		require.NoError(t, res.err, res.errOut)
		assert.Contains(t, res.errOut, "could not load pricing file")
		assert.Contains(t, res.out, "Tokens:")
	})
}

func TestRun_Estimate(t *testing.T) {
	setupWorkspace(t)
	mock := rewriteCompleter()
	res := runCLI(t, RunOptions{Completer: mock}, "estimate", "my_script.py", "--provider", "openai", "--model", "gpt-5-mini", "--mode", "inject")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "in INJECT mode")
	assert.Contains(t, res.out, "   Tokens:    ")
	assert.Empty(t, mock.Requests())
	assert.NoDirExists(t, "ai_output")
}

func TestRun_Strip(t *testing.T) {
	setupWorkspace(t)
	writeFile(t, filepath.Join("src", "my_script_to_strip.py"), "\"\"\"Module doc.\"\"\"\n\n\ndef my_func():\n    \"\"\"This is a docstring.\"\"\"\n    return 1\n")

	res := runCLI(t, RunOptions{}, "strip", filepath.Join("src", "my_script_to_strip.py"))
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "Successfully stripped docstrings (2 removed)")

	b, err := os.ReadFile(filepath.Join("stripped_scripts", "my_script_to_strip_strip.py"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"""This is a docstring."""`)
	assert.Contains(t, string(b), "def my_func")

	t.Run("syntax error", func(t *testing.T) {
		writeFile(t, "broken.py", "def f(:\n")
		res := runCLI(t, RunOptions{}, "strip", "broken.py", "--output-dir", "x")
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.errOut, "strip broken.py")
		assert.NoDirExists(t, "x")
	})
}

func TestRun_Clean(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		setupWorkspace(t)
		res := runCLI(t, RunOptions{}, "clean", "--output-dir", "non_existent_dir")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Directory non_existent_dir not found")
	})

	t.Run("empty directory", func(t *testing.T) {
		setupWorkspace(t)
		require.NoError(t, os.Mkdir("ai_output", 0o755))
		res := runCLI(t, RunOptions{}, "clean")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "is already empty")
	})

	t.Run("confirmed", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, filepath.Join("ai_output", "file1.txt"), "")
		writeFile(t, filepath.Join("ai_output", "file2.txt"), "")
		require.NoError(t, os.Mkdir(filepath.Join("ai_output", "keep"), 0o755))

		res := runCLI(t, RunOptions{In: strings.NewReader("y\n")}, "clean")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Successfully deleted 2 file(s)")
		assert.NoFileExists(t, filepath.Join("ai_output", "file1.txt"))
		assert.NoFileExists(t, filepath.Join("ai_output", "file2.txt"))
		assert.DirExists(t, filepath.Join("ai_output", "keep"))
	})

	t.Run("declined", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, filepath.Join("ai_output", "file1.txt"), "")

		res := runCLI(t, RunOptions{In: strings.NewReader("n\n")}, "clean")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Aborted by user")
		assert.FileExists(t, filepath.Join("ai_output", "file1.txt"))
	})

	t.Run("yes flag", func(t *testing.T) {
		setupWorkspace(t)
		writeFile(t, filepath.Join("ai_output", "file1.txt"), "")

		res := runCLI(t, RunOptions{}, "clean", "--yes")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Successfully deleted 1 file(s)")
		assert.NoFileExists(t, filepath.Join("ai_output", "file1.txt"))
	})

	t.Run("output dir from env", func(t *testing.T) {
		setupWorkspace(t)
		t.Setenv("PYDOCIFY_OUTPUT_DIR", "generated")
		writeFile(t, filepath.Join("generated", "a.doc.py"), "x = 1\n")

		res := runCLI(t, RunOptions{}, "clean", "-y")
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Successfully deleted 1 file(s) from generated")
	})
}
