// Package eventlog writes timestamped service events to an append-only file
// and can read back the most recent entries for the events endpoint.
package eventlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped events to a file.  It is safe for concurrent use.
type Logger struct {
	filePath string
	mu       sync.Mutex
}

// New creates a logger writing to filePath.  File rotation by date can be
// added later.
func New(filePath string) *Logger {
	return &Logger{filePath: filePath}
}

// Log writes a single event with timestamp.  Errors are not propagated but
// printed to standard error.
func (l *Logger) Log(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format(time.RFC3339)
	line := fmt.Sprintf("%s - %s\n", ts, msg)
	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log error: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "log write error: %v\n", err)
	}
}

// Tail returns up to n of the most recent log lines.  A missing log file is
// not an error; it reads as empty.
func (l *Logger) Tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	// Drop empty trailing line
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
