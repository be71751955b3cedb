// Package logging provides structured logging for lightpaxos nodes.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is the most verbose level. Protocol traffic is logged here.
	LevelDebug Level = iota
	// LevelInfo is for state transitions and decisions.
	LevelInfo
	// LevelWarn is for dropped or rejected traffic.
	LevelWarn
	// LevelError is for transport and configuration failures.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level. Unknown strings map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents the log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseFormat parses a string into a Format.
func ParseFormat(s string) Format {
	if strings.ToLower(s) == "json" {
		return FormatJSON
	}
	return FormatText
}

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})
	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})
	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})
	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
	// WithFields returns a new logger that adds the given fields to every entry.
	WithFields(keysAndValues ...interface{}) Logger
	// Enabled reports whether messages at level are written.
	Enabled(level Level) bool
	// SetLevel changes the threshold of this logger and every logger
	// derived from the same root.
	SetLevel(level Level)
}

// field is one key-value pair; order is kept for text output.
type field struct {
	key   string
	value interface{}
}

// logger is the default implementation of Logger.
type logger struct {
	level  *atomic.Int32
	format Format
	output io.Writer
	fields []field
	mu     *sync.Mutex // shared by all loggers derived from the same root
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output string
}

// New creates a new Logger with the given configuration.
func New(cfg Config) Logger {
	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// Fall back to stdout when the file cannot be opened
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}

	return NewWithWriter(output, ParseLevel(cfg.Level), ParseFormat(cfg.Format))
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(w io.Writer, level Level, format Format) Logger {
	l := &logger{
		level:  &atomic.Int32{},
		format: format,
		output: w,
		mu:     &sync.Mutex{},
	}
	l.level.Store(int32(level))
	return l
}

// NewDefault creates a new Logger with default settings.
func NewDefault() Logger {
	return NewWithWriter(os.Stdout, LevelInfo, FormatText)
}

// NewNop creates a no-op logger that discards all output.
func NewNop() Logger {
	return &nopLogger{}
}

// Debug logs a debug message.
func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs an info message.
func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message.
func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message.
func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues...)
}

// Enabled reports whether level passes the logger's threshold.
func (l *logger) Enabled(level Level) bool {
	return int32(level) >= l.level.Load()
}

// SetLevel changes the threshold.
func (l *logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// WithFields returns a new logger with the given fields.
func (l *logger) WithFields(keysAndValues ...interface{}) Logger {
	fields := make([]field, len(l.fields), len(l.fields)+len(keysAndValues)/2)
	copy(fields, l.fields)
	fields = appendPairs(fields, keysAndValues)
	return &logger{
		level:  l.level,
		format: l.format,
		output: l.output,
		fields: fields,
		mu:     l.mu,
	}
}

// appendPairs adds key-value pairs, skipping entries whose key is not a string.
func appendPairs(fields []field, keysAndValues []interface{}) []field {
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields = append(fields, field{key: key, value: keysAndValues[i+1]})
		}
	}
	return fields
}

// log writes a log entry.
func (l *logger) log(level Level, msg string, keysAndValues ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	fields := appendPairs(append([]field(nil), l.fields...), keysAndValues)

	var output string
	if l.format == FormatJSON {
		output = formatJSON(ts, level, msg, fields)
	} else {
		output = formatText(ts, level, msg, fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.output, output)
}

// formatJSON formats a log entry as a JSON object.
func formatJSON(ts string, level Level, msg string, fields []field) string {
	entry := make(map[string]interface{}, len(fields)+3)
	for _, f := range fields {
		entry[f.key] = jsonValue(f.value)
	}
	entry["ts"] = ts
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"ts":"%s","level":"error","msg":"failed to marshal log entry"}`, ts)
	}
	return string(data)
}

// jsonValue renders errors as their message; json.Marshal would emit {}.
func jsonValue(v interface{}) interface{} {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// formatText formats a log entry as text, fields in the order they were given.
func formatText(ts string, level Level, msg string, fields []field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts, level, msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.value)
	}
	return b.String()
}

// nopLogger is a no-op logger that discards all output.
type nopLogger struct{}

func (n *nopLogger) Debug(_ string, _ ...interface{})   {}
func (n *nopLogger) Info(_ string, _ ...interface{})    {}
func (n *nopLogger) Warn(_ string, _ ...interface{})    {}
func (n *nopLogger) Error(_ string, _ ...interface{})   {}
func (n *nopLogger) WithFields(_ ...interface{}) Logger { return n }
func (n *nopLogger) Enabled(_ Level) bool               { return false }
func (n *nopLogger) SetLevel(_ Level)                   {}
