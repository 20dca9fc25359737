package simplelogger

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// EnvVar names the file that log output is appended to.
const EnvVar = "PYDOCIFY_LOG_FILE"

var mu sync.Mutex

// New returns a JSON slog.Logger that appends to the file named by PYDOCIFY_LOG_FILE. If the variable is unset or empty, the logger discards everything.
//
// The file is opened per record, so a path that can't be opened drops records instead of failing the caller.
func New(level slog.Leveler) *slog.Logger {
	path := os.Getenv(EnvVar)
	if path == "" {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewJSONHandler(appendWriter{path: path}, &slog.HandlerOptions{Level: level}))
}

// Log is a minimal printf-style logger. It appends formatted output to the file specified by PYDOCIFY_LOG_FILE.
//
// If PYDOCIFY_LOG_FILE is unset/empty or the path can't be opened as a file, Log is a no-op.
func Log(format string, args ...any) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return
	}

	var b bytes.Buffer
	_, _ = fmt.Fprintf(&b, format, args...)
	if b.Len() == 0 || b.Bytes()[b.Len()-1] != '\n' {
		_ = b.WriteByte('\n')
	}
	_, _ = appendWriter{path: path}.Write(b.Bytes())
}

type appendWriter struct {
	path string
}

func (w appendWriter) Write(p []byte) (int, error) {
	// Serialize open/write/close to reduce interleaving within a single process.
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return len(p), nil // drop the record
	}
	defer f.Close()
	return f.Write(p)
}
