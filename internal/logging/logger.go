package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

type requestIDKey struct{}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id set by the request id middleware
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Level filters log output
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL values; unknown values mean info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel sets the process-wide minimum level
func SetLevel(l Level) {
	minLevel.Store(int32(l))
}

func enabled(l Level) bool {
	return Level(minLevel.Load()) <= l
}

// Logger provides request-scoped structured logging
type Logger struct {
	requestID string
	sessionID string
}

// NewLogger creates a logger bound to the request in ctx
func NewLogger(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{requestID: requestID}
}

// WithSession returns a copy that also tags lines with the contact session id
func (l *Logger) WithSession(sessionID string) *Logger {
	cp := *l
	cp.sessionID = sessionID
	return &cp
}

func (l *Logger) prefix(level, operation string) string {
	if l.sessionID != "" {
		return "[" + level + "] request_id=" + l.requestID + " session_id=" + l.sessionID + " operation=" + operation + " "
	}
	return "[" + level + "] request_id=" + l.requestID + " operation=" + operation + " "
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	log.Printf("%serror=%v", l.prefix("error", operation), err)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf("%s"+format, append([]interface{}{l.prefix("info", operation)}, args...)...)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	log.Printf("%s"+format, append([]interface{}{l.prefix("warn", operation)}, args...)...)
}

// LogDebugf is dropped unless LOG_LEVEL=debug
func (l *Logger) LogDebugf(operation string, format string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	log.Printf("%s"+format, append([]interface{}{l.prefix("debug", operation)}, args...)...)
}
