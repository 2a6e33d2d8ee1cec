package compiler

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Logger receives diagnostic output. Log continues the current line and
// LogLine finishes it; values are separated by spaces.
type Logger interface {
	Log(values ...any)
	LogLine(values ...any)
}

// StreamLogger writes lines to an io.Writer. It is safe for concurrent use,
// which matters when watch rebuilds overlap with cache maintenance.
type StreamLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// WriterLogger returns a logger writing to w.
func WriterLogger(w io.Writer) *StreamLogger {
	return &StreamLogger{w: w}
}

func (l *StreamLogger) Log(values ...any) {
	l.mu.Lock()
	io.WriteString(l.w, join(values))
	l.mu.Unlock()
}

func (l *StreamLogger) LogLine(values ...any) {
	l.mu.Lock()
	io.WriteString(l.w, join(values)+"\n")
	l.mu.Unlock()
}

// BufferedLogger keeps finished lines in memory, mainly for tests and the
// REPL's trace view.
type BufferedLogger struct {
	mu      sync.Mutex
	lines   []string
	partial string
}

func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{}
}

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	l.partial += join(values)
	l.mu.Unlock()
}

func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, l.partial+join(values))
	l.partial = ""
	l.mu.Unlock()
}

// String returns the finished lines followed by any unfinished one.
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return l.partial
	}
	return strings.Join(l.lines, "\n") + "\n" + l.partial
}

// Lines returns a copy of the finished lines.
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	l.lines, l.partial = nil, ""
	l.mu.Unlock()
}

type prefixed struct {
	next   Logger
	prefix string
	midway bool
}

// Prefixed tags every line written through l with prefix, e.g. "[TRACE]".
func Prefixed(l Logger, prefix string) Logger {
	return &prefixed{next: l, prefix: prefix}
}

func (p *prefixed) Log(values ...any) {
	if !p.midway {
		values = append([]any{p.prefix}, values...)
		p.midway = true
	}
	p.next.Log(values...)
}

func (p *prefixed) LogLine(values ...any) {
	if !p.midway {
		values = append([]any{p.prefix}, values...)
	}
	p.midway = false
	p.next.LogLine(values...)
}

type discard struct{}

func (discard) Log(...any)     {}
func (discard) LogLine(...any) {}

// NullLogger drops everything.
func NullLogger() Logger { return discard{} }

func join(values []any) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	return sb.String()
}
