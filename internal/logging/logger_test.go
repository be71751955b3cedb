package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo}, // default
		{"", LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.level.String()
			if result != tt.expected {
				t.Errorf("Level.String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"unknown", FormatText}, // default
		{"", FormatText},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseFormat(tt.input)
			if result != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelDebug, FormatJSON)

	l.Info("state transition", "role", "p1", "to", "primary", "ballot", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v, output: %s", err, buf.String())
	}

	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["msg"] != "state transition" {
		t.Errorf("msg = %v, want state transition", entry["msg"])
	}
	if entry["role"] != "p1" {
		t.Errorf("role = %v, want p1", entry["role"])
	}
	if entry["ballot"] != float64(3) {
		t.Errorf("ballot = %v, want 3", entry["ballot"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("ts field missing")
	}
}

func TestLoggerJSONError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelDebug, FormatJSON)

	l.Error("send failed", "error", errors.New("network unreachable"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry["error"] != "network unreachable" {
		t.Errorf("error = %v, want network unreachable", entry["error"])
	}
}

func TestLoggerText(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelDebug, FormatText)

	l.Warn("prepare dropped", "sender", "p2", "streak", 2)

	output := buf.String()
	if !strings.Contains(output, "[warn]") {
		t.Errorf("output missing level: %s", output)
	}
	if !strings.Contains(output, "prepare dropped sender=p2 streak=2") {
		t.Errorf("output missing ordered fields: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("output not newline terminated: %q", output)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn, FormatText)

	l.Debug("debug message")
	l.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("messages below level were written: %s", buf.String())
	}

	l.Warn("warn message")
	l.Error("error message")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("got %d lines, want 2: %s", len(lines), buf.String())
	}
}

func TestLoggerEnabled(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, LevelInfo, FormatText)

	if l.Enabled(LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !l.Enabled(LevelInfo) || !l.Enabled(LevelError) {
		t.Error("info and error should be enabled at info level")
	}
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, LevelInfo, FormatText)
	child := base.WithFields("role", "p1")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %s", buf.String())
	}

	base.SetLevel(LevelDebug)
	child.Debug("shown")
	if !strings.Contains(buf.String(), "[debug] shown role=p1") {
		t.Errorf("child logger did not follow level change: %s", buf.String())
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, LevelDebug, FormatText)

	roleLogger := base.WithFields("role", "a1")
	roleLogger.Info("promise sent", "proposal", 4)

	output := buf.String()
	if !strings.Contains(output, "promise sent role=a1 proposal=4") {
		t.Errorf("unexpected output: %s", output)
	}

	buf.Reset()
	base.Info("plain")
	if strings.Contains(buf.String(), "role=") {
		t.Errorf("parent logger picked up child fields: %s", buf.String())
	}
}

func TestLoggerWithFieldsIsolation(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, LevelDebug, FormatText).WithFields("node", "n1")

	a := base.WithFields("role", "a1")
	p := base.WithFields("role", "p1")

	a.Info("one")
	p.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[0], "one node=n1 role=a1") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "two node=n1 role=p1") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestLoggerOddKeysAndValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelDebug, FormatText)

	l.Info("odd", "key", "value", 7, "ignored", "dangling")

	output := buf.String()
	if !strings.Contains(output, "odd key=value\n") {
		t.Errorf("non-string keys and dangling keys should be skipped: %q", output)
	}
}

func TestLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, LevelDebug, FormatText)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := base.WithFields("worker", id)
			for j := 0; j < 50; j++ {
				l.Info("tick")
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 400 {
		t.Errorf("got %d lines, want 400", len(lines))
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	if l.WithFields("key", "value") == nil {
		t.Error("WithFields() returned nil")
	}
	if l.Enabled(LevelError) {
		t.Error("nop logger should report every level disabled")
	}
}

func TestNewOutputs(t *testing.T) {
	tests := []string{"", "stdout", "stderr"}
	for _, output := range tests {
		t.Run(output, func(t *testing.T) {
			if l := New(Config{Level: "debug", Format: "json", Output: output}); l == nil {
				t.Error("New() returned nil")
			}
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := t.TempDir() + "/node.log"
	l := New(Config{Level: "info", Format: "text", Output: path})
	l.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[info] written to file") {
		t.Errorf("file content = %q", data)
	}
}
