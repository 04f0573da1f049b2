// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var currentLevel atomic.Uint32

var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output. Used by the TUI, which owns the
// terminal while it runs, and by tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func emit(level LogLevel, prefix, msg string) {
	if !shouldLog(level) {
		return
	}
	// Keep columns aligned for the 4-letter levels.
	pad := " "
	if len(level.String()) == 4 {
		pad = "  "
	}
	if level == LevelFatal {
		logger.Fatalf("[%s]%s%s%s", level, pad, prefix, msg)
	}
	logger.Printf("[%s]%s%s%s", level, pad, prefix, msg)
}

func Debugf(format string, v ...any) { emit(LevelDebug, "", fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { emit(LevelInfo, "", fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { emit(LevelWarn, "", fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { emit(LevelError, "", fmt.Sprintf(format, v...)) }

// Fatalf logs and exits regardless of the current level.
func Fatalf(format string, v ...any) { emit(LevelFatal, "", fmt.Sprintf(format, v...)) }

// Fields are key/value pairs appended to a component logger's messages.
type Fields map[string]any

// Logger is a component-scoped logger. Messages are prefixed with the
// component name and any preset fields, in key order.
type Logger struct {
	component string
	suffix    string
}

// For returns a logger for the named component.
func For(component string) *Logger {
	return &Logger{component: component}
}

// WithFields returns a copy of l that appends fields to every message.
func (l *Logger) WithFields(fields Fields) *Logger {
	if len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(l.suffix)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	return &Logger{component: l.component, suffix: sb.String()}
}

func (l *Logger) format(format string, v []any) (string, string) {
	return l.component + ": ", fmt.Sprintf(format, v...) + l.suffix
}

func (l *Logger) Debugf(format string, v ...any) {
	if !shouldLog(LevelDebug) {
		return
	}
	p, m := l.format(format, v)
	emit(LevelDebug, p, m)
}

func (l *Logger) Infof(format string, v ...any) {
	p, m := l.format(format, v)
	emit(LevelInfo, p, m)
}

func (l *Logger) Warnf(format string, v ...any) {
	p, m := l.format(format, v)
	emit(LevelWarn, p, m)
}

func (l *Logger) Errorf(format string, v ...any) {
	p, m := l.format(format, v)
	emit(LevelError, p, m)
}
