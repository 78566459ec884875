package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// captureLogOutput swaps the default logger for a debug-level JSON logger
// writing to a buffer while f runs.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	f()

	defaultLogger = oldLogger
	return buf.String()
}

// captureLogOutputWithInit routes InitLogger to a buffer so the ReplaceAttr
// logic is exercised.
func captureLogOutputWithInit(level Level, format Format, f func()) string {
	var buf bytes.Buffer
	SetOutput(&buf)
	InitLogger(level, format)

	f()

	SetOutput(nil)
	InitLogger(LevelInfo, FormatText)
	return buf.String()
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"debug json", LevelDebug, FormatJSON},
		{"info json", LevelInfo, FormatJSON},
		{"warn json", LevelWarn, FormatJSON},
		{"error json", LevelError, FormatJSON},
		{"info text", LevelInfo, FormatText},
		{"invalid level", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatText)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Error("ParseFormat(JSON) should be FormatJSON")
	}
	if ParseFormat("text") != FormatText || ParseFormat("") != FormatText {
		t.Error("ParseFormat should default to FormatText")
	}
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutputWithInit(LevelWarn, FormatText, func() {
		GetLogger().Info("hidden message")
		GetLogger().Warn("visible message")
	})

	if strings.Contains(output, "hidden message") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(output, "visible message") {
		t.Error("warn record missing")
	}
}

func TestReplaceAttrTimestamp(t *testing.T) {
	output := captureLogOutputWithInit(LevelInfo, FormatJSON, func() {
		GetLogger().Info("timestamp test")
	})

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, output)
	}
	ts, ok := record["time"].(string)
	if !ok || !strings.Contains(ts, "T") {
		t.Errorf("time = %v, want RFC3339 string", record["time"])
	}
	if record["msg"] != "timestamp test" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestSessionContext(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")
	if got := GetSessionID(ctx); got != "sess-1" {
		t.Errorf("GetSessionID() = %q, want sess-1", got)
	}
	if got := GetSessionID(context.Background()); got != "" {
		t.Errorf("GetSessionID(empty) = %q, want empty", got)
	}

	output := captureLogOutput(func() {
		LoggerFromContext(ctx).Info("with session")
	})
	if !strings.Contains(output, `"session_id":"sess-1"`) {
		t.Errorf("expected session_id in output, got %s", output)
	}
}

func TestDomainHelpers(t *testing.T) {
	output := captureLogOutput(func() {
		DocumentEvent(nil, "loaded", "42", "notes.md")
		TransformApplied(nil, "remove_newlines", "42", 3, 2)
		TrackingReset(nil, "42", "path changed", "stored_path", "old.md")
		PersistError(nil, "record", errors.New("disk full"), "doc_id", "42")
	})

	checks := []string{
		`"msg":"document_event"`, `"event":"loaded"`, `"doc_id":"42"`, `"path":"notes.md"`,
		`"msg":"transform_applied"`, `"command":"remove_newlines"`, `"regions":3`, `"changed":2`,
		`"msg":"tracking_reset"`, `"reason":"path changed"`, `"stored_path":"old.md"`,
		`"msg":"persist_error"`, `"operation":"record"`, `"error":"disk full"`,
	}
	for _, want := range checks {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s\n%s", want, output)
		}
	}
}

func TestDomainHelpersExplicitLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	TrackingReset(logger, "57", "stale")
	if !strings.Contains(buf.String(), `"doc_id":"57"`) {
		t.Errorf("explicit logger not used: %s", buf.String())
	}
}
