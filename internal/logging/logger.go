// Package logging provides the structured logger used across the
// insight server. Output is JSON by default (LOG_JSON=false switches to
// plain text) and every entry can carry a component name and a trace ID.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging interface passed into the fetch and insight layers.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithComponent(component string) Logger
	WithTraceID(traceID string) Logger
}

// LogLevel controls which entries are emitted.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// ContextKey is the type used for context values owned by this package.
type ContextKey string

// TraceIDKey carries the request trace ID through a context.
const TraceIDKey ContextKey = "trace_id"

// Entry is one structured log record.
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

type structuredLogger struct {
	level     LogLevel
	component string
	traceID   string
	useJSON   bool
}

// NewLogger creates a logger at the given level. JSON output is the
// default; set LOG_JSON=false for text.
func NewLogger(level LogLevel) Logger {
	return &structuredLogger{
		level:   level,
		useJSON: os.Getenv("LOG_JSON") != "false",
	}
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *structuredLogger) WithComponent(component string) Logger {
	c := *l
	c.component = component
	return &c
}

func (l *structuredLogger) WithTraceID(traceID string) Logger {
	c := *l
	c.traceID = traceID
	return &c
}

func (l *structuredLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DEBUG {
		l.emit("DEBUG", msg, fields...)
	}
}

func (l *structuredLogger) Info(msg string, fields ...interface{}) {
	if l.level <= INFO {
		l.emit("INFO", msg, fields...)
	}
}

func (l *structuredLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WARN {
		l.emit("WARN", msg, fields...)
	}
}

func (l *structuredLogger) Error(msg string, fields ...interface{}) {
	if l.level <= ERROR {
		l.emit("ERROR", msg, fields...)
	}
}

func (l *structuredLogger) Fatal(msg string, fields ...interface{}) {
	l.emit("FATAL", msg, fields...)
	os.Exit(1)
}

func (l *structuredLogger) emit(level, msg string, fields ...interface{}) {
	var fieldMap map[string]interface{}
	if len(fields) > 0 {
		fieldMap = make(map[string]interface{}, len(fields)/2)
		for i := 0; i < len(fields); i += 2 {
			if i+1 < len(fields) {
				fieldMap[fmt.Sprintf("%v", fields[i])] = fields[i+1]
			} else {
				fieldMap[fmt.Sprintf("field_%d", i)] = fields[i]
			}
		}
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Component: l.component,
		TraceID:   l.traceID,
		Fields:    fieldMap,
	}

	if l.useJSON {
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
			return
		}
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	parts := []string{entry.Timestamp, "[" + entry.Level + "]"}
	if entry.Component != "" {
		parts = append(parts, "component:"+entry.Component)
	}
	if entry.TraceID != "" && len(entry.TraceID) >= 8 {
		parts = append(parts, "trace:"+entry.TraceID[:8])
	}
	parts = append(parts, entry.Message)
	for k, v := range entry.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))
}

var defaultLogger = NewLogger(INFO)

// SetDefaultLevel reconfigures the package-level logger.
func SetDefaultLevel(level LogLevel) {
	defaultLogger = NewLogger(level)
}

// Default returns the package-level logger.
func Default() Logger {
	return defaultLogger
}

func Debug(msg string, fields ...interface{}) { defaultLogger.Debug(msg, fields...) }
func Info(msg string, fields ...interface{})  { defaultLogger.Info(msg, fields...) }
func Warn(msg string, fields ...interface{})  { defaultLogger.Warn(msg, fields...) }
func Error(msg string, fields ...interface{}) { defaultLogger.Error(msg, fields...) }
func Fatal(msg string, fields ...interface{}) { defaultLogger.Fatal(msg, fields...) }

// GenerateTraceID returns a fresh trace ID.
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID stores a trace ID in a context, generating one when empty.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = GenerateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID extracts the trace ID from a context, if any.
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
