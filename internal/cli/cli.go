package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/codalotl/pydocify/internal/llmcomplete"
	"github.com/codalotl/pydocify/internal/simplelogger"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is the pydocify version. It is a var (not a const) so build tooling can override it (for example via `-ldflags "-X .../internal/cli.Version=1.2.3"`).
var Version = "0.1.0"

// In/Out/Err override standard I/O. If nil, defaults are used. Overriding is useful for testing.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Completer, if set, answers generation requests instead of a client for the selected provider.
	Completer llmcomplete.Completer
}

// usageError marks errors caused by malformed arguments or flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// env is the I/O and collaborators shared by every command of one Run.
type env struct {
	in        *bufio.Reader
	out       io.Writer
	err       io.Writer
	color     bool // out is a terminal
	styles    styles
	completer llmcomplete.Completer
	logger    *slog.Logger
}

func newEnv(opts *RunOptions) *env {
	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	var completer llmcomplete.Completer
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
		completer = opts.Completer
	}
	return &env{
		in:        bufio.NewReader(in),
		out:       out,
		err:       errW,
		color:     isTerminal(out) && os.Getenv("NO_COLOR") == "",
		styles:    newStyles(out),
		completer: completer,
		logger:    simplelogger.New(slog.LevelInfo),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run runs the CLI with args (typically you'd use os.Args).
//
// It returns a recommended exit code (0, 1, or 2) and an error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but the structure of args is sound (flags are correct, etc).
//   - 2 -> err != nil, args parse error or misuse of flags, etc.
//
// Declining a confirmation prompt is not an error. In cases of errors, Run has already displayed an error message to opts.Err || Stderr. Callers may use os.Exit
// with the exit code.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	e := newEnv(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(e)
	root.SetArgs(argv)
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.err)
	root.SilenceErrors = true
	root.SilenceUsage = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0, nil
	}

	e.logger.Error("command failed", "args", argv, "err", err)
	fmt.Fprintf(e.err, "%s %v\n", e.styles.err.Render("Error:"), err)

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(e.err, "Run '%s --help' for usage.\n", root.Name())
		return 2, err
	}
	return 1, err
}
