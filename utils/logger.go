package utils

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"
)

// Level orders log severities; messages below the logger's level are discarded.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger provides leveled logging throughout the application.
type Logger struct {
	level Level
	out   *log.Logger
	err   *log.Logger
}

// NewLoggerTo creates a Logger on the given writers. Tests pass a buffer for both.
func NewLoggerTo(out, errOut io.Writer, level Level) *Logger {
	return &Logger{
		level: level,
		out:   log.New(out, "", 0),
		err:   log.New(errOut, "", 0),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, io.Discard, LevelError+1)
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) print(dst *log.Logger, level Level, tag, format string, args []any) {
	if level < l.level {
		return
	}
	dst.Printf(fmt.Sprintf("[%s] %s %s\n", l.timestamp(), tag, format), args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.print(l.out, LevelInfo, "\033[32mINFO\033[0m ", format, args)
}

func (l *Logger) Warn(format string, args ...any) {
	l.print(l.out, LevelWarn, "\033[33mWARN\033[0m ", format, args)
}

func (l *Logger) Error(format string, args ...any) {
	l.print(l.err, LevelError, "\033[31mERROR\033[0m", format, args)
}

func (l *Logger) Debug(format string, args ...any) {
	l.print(l.out, LevelDebug, "\033[36mDEBUG\033[0m", format, args)
}
