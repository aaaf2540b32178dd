// Package logging provides the operator-facing run log: every significant
// event of a batch run is printed to stdout and mirrored, timestamped, to an
// append-only log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLog writes run events to the console and an append-only file. A file
// write failure is reported once on the console and never aborts the run.
type RunLog struct {
	mu   sync.Mutex
	file *os.File
	out  *os.File
}

// New opens (creating parent directories as needed) the run log at path.
// Passing an empty path yields a console-only log.
func New(path string) (*RunLog, error) {
	rl := &RunLog{out: os.Stdout}
	if path == "" {
		return rl, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	rl.file = f
	return rl, nil
}

// Discard returns a RunLog that writes nowhere. Used in tests.
func Discard() *RunLog {
	return &RunLog{}
}

// Log writes one line to the console and the log file.
func (rl *RunLog) Log(msg string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.out != nil {
		fmt.Fprintln(rl.out, msg)
	}
	if rl.file == nil {
		return
	}
	stamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(rl.file, "[%s] %s\n", stamp, msg); err != nil && rl.out != nil {
		fmt.Fprintf(rl.out, "warning: run log write failed: %v\n", err)
	}
}

// Logf formats and writes one line.
func (rl *RunLog) Logf(format string, args ...any) {
	rl.Log(fmt.Sprintf(format, args...))
}

// Close releases the log file handle.
func (rl *RunLog) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
