package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger is a small leveled logger. Messages carry a timestamp, a level and
// an optional [component] prefix.
type Logger struct {
	info      *log.Logger
	warn      *log.Logger
	err       *log.Logger
	debug     *log.Logger
	debugOn   bool
	component string
}

// NewLogger writes info and debug to stdout, warnings and errors to stderr.
func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr, debug)
}

// NewLoggerTo writes to the given streams.
func NewLoggerTo(out, errOut io.Writer, debug bool) *Logger {
	return &Logger{
		info:    log.New(out, "", 0),
		warn:    log.New(errOut, "", 0),
		err:     log.New(errOut, "", 0),
		debug:   log.New(out, "", 0),
		debugOn: debug,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard, false)
}

// With returns a copy that prefixes messages with [component].
func (l *Logger) With(component string) *Logger {
	cp := *l
	cp.component = component
	return &cp
}

// DebugEnabled reports whether Debug messages are written.
func (l *Logger) DebugEnabled() bool { return l != nil && l.debugOn }

func (l *Logger) line(level, format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		msg = "[" + l.component + "] " + msg
	}
	return fmt.Sprintf("%s %-5s %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)
}

func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.info.Println(l.line("INFO", format, args))
}

func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Println(l.line("WARN", format, args))
}

func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.err.Println(l.line("ERROR", format, args))
}

func (l *Logger) Debug(format string, args ...any) {
	if l == nil || !l.debugOn {
		return
	}
	l.debug.Println(l.line("DEBUG", format, args))
}
