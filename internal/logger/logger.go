// Package logger provides levelled logging for the reportqa CLI.
// Messages go to stderr so that answers written to stdout stay clean.
// The --verbose flag enables debug messages describing each pipeline step;
// --quiet limits output to warnings and errors.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is a logging threshold.
type Level int

// Logging levels, from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

var (
	mu     sync.RWMutex
	level        = LevelInfo
	output io.Writer = os.Stderr
)

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetVerbose switches between debug and info level.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelInfo)
}

// IsVerbose returns true if debug messages are written.
func IsVerbose() bool {
	return GetLevel() <= LevelDebug
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(l Level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l >= level {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

// Debug prints a message in verbose mode.
func Debug(format string, args ...any) {
	logf(LevelDebug, "[DEBUG] ", format, args...)
}

// Info prints a progress message.
func Info(format string, args ...any) {
	logf(LevelInfo, "[INFO] ", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	logf(LevelWarn, "[WARN] ", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	logf(LevelError, "[ERROR] ", format, args...)
}

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if level <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
