package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level is the severity attached to a log line.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

const timestampLayout = "2006-01-02 15:04:05,000"

// Logger writes "<timestamp> - <LEVEL> - <message>" lines.
type Logger struct {
	mu  sync.Mutex
	out *log.Logger
	now func() time.Time
}

// New creates a Logger on top of w. A nil writer discards everything.
func New(w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		out: log.New(w, "", 0),
		now: time.Now,
	}
}

// OpenFile opens path in append mode and returns a Logger writing to it along
// with the file so the caller can close it on shutdown.
func OpenFile(path string) (*Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(f), f, nil
}

// Discard returns a Logger that drops every line.
func Discard() *Logger {
	return New(io.Discard)
}

// WithClock overrides the timestamp source.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

func (l *Logger) Critical(format string, args ...interface{}) {
	l.write(LevelCritical, format, args...)
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("%s - %s - %s", l.now().Format(timestampLayout), level, msg)
}
