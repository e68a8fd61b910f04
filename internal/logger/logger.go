// Package logger prints diagnostics for the Lectern CLI.
//
// Debug, Info, and Section are gated behind the --verbose flag and trace
// the ingestion and query pipelines (chunking, retrieval, tool rounds).
// Warn always prints: it carries actionable problems such as a skipped
// course file or a disabled assistant, which the user needs to see even
// in quiet mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables the verbose diagnostic levels.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output, which defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug traces one step of a pipeline. Verbose only.
func Debug(format string, args ...any) {
	emit(true, "[DEBUG] "+format+"\n", args...)
}

// Info reports progress, such as an indexed course. Verbose only.
func Info(format string, args ...any) {
	emit(true, "[INFO] "+format+"\n", args...)
}

// Section marks the start of a pipeline phase. Verbose only.
func Section(name string) {
	emit(true, "\n=== %s ===\n", name)
}

// Warn reports a problem the user should act on. Always printed.
func Warn(format string, args ...any) {
	emit(false, "[WARN] "+format+"\n", args...)
}

func emit(gated bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if gated && !verbose {
		return
	}
	fmt.Fprintf(output, format, args...)
}
