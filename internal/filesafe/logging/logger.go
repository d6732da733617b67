// Package logging provides the minimal level-based logging surface used
// throughout filesafe. It mirrors the shape of a hand-rolled logger
// interface rather than adopting a structured logging library, so that
// an embedding application can satisfy Logger with whatever it already
// uses (stdlib log, zerolog, zap, ...) without a dependency on this
// package's choices leaking into theirs.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is the logging surface filesafe depends on. Debug/Info/Error
// take a free-form message the way a generic logger would. Warn is
// shaped around filesafe's one recurring diagnostic instead: a
// best-effort step — backup cleanup, backup restore, staging-dir
// preparation — that failed and was swallowed rather than surfaced to
// the caller (spec §7: "logged, swallowed, never re-raised"). Passing
// the failing operation and target as their own fields, rather than a
// pre-formatted string, lets an embedding application's structured
// logger (zap, zerolog, ...) index on them instead of re-parsing text.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(op, target string, err error)
	Error(format string, args ...interface{})
}

// defaultLogger writes level-prefixed lines to an io.Writer.
type defaultLogger struct {
	output io.Writer
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "DEBUG: "+format+"\n", args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "INFO: "+format+"\n", args...)
}

func (l *defaultLogger) Warn(op, target string, err error) {
	fmt.Fprintf(l.output, "WARN: %s %s: %v\n", op, target, err)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "ERROR: "+format+"\n", args...)
}

var (
	mu     sync.RWMutex
	global Logger = &defaultLogger{output: os.Stderr}
)

// Set installs the logger used by the rest of the package tree.
func Set(l Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// Get returns the currently installed logger.
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
