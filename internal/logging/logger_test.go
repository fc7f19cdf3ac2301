package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tuneport/internal/config"
	"tuneport/internal/logging"
	"tuneport/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("job queued", logging.String(logging.FieldJobID, "abc"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("decode log line %q: %v", data, err)
	}
	if record["msg"] != "job queued" || record["job_id"] != "abc" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "matcher").Info("candidate accepted",
		logging.Float64("score", 0.92),
		logging.String("title", "Bohemian Rhapsody"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO matcher: candidate accepted", "score=0.92", `title="Bohemian Rhapsody"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "duplicate scan failed", "duplicate_scan_failed",
		logging.String(logging.FieldErrorHint, "check catalog connectivity"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "duplicate_scan_failed" {
		t.Fatalf("unexpected event type: %v", record)
	}
	if record[logging.FieldErrorHint] != "check catalog connectivity" {
		t.Fatalf("expected caller hint to be kept: %v", record)
	}
	if _, ok := record[logging.FieldImpact]; !ok {
		t.Fatalf("expected impact default: %v", record)
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "searching")
	ctx = services.WithRequestID(ctx, "req-9")

	logging.WithContext(ctx, base).Info("stage started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["job_id"] != "job-1" || record["stage"] != "searching" || record["correlation_id"] != "req-9" {
		t.Fatalf("unexpected context fields: %v", record)
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	errOnly := slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(logging.TeeHandler(nil, info, errOnly)).With("component", "tee")

	logger.Info("hello")
	logger.Error("boom")

	if got := strings.Count(infoBuf.String(), "\n"); got != 2 {
		t.Fatalf("expected two lines in info handler, got %d", got)
	}
	if got := strings.Count(errBuf.String(), "\n"); got != 1 {
		t.Fatalf("expected one line in error handler, got %d", got)
	}
	if !strings.Contains(errBuf.String(), `"component":"tee"`) {
		t.Fatalf("expected attrs propagated, got %q", errBuf.String())
	}
	if _, ok := logging.TeeHandler(nil, nil).(logging.NoopHandler); !ok {
		t.Fatal("expected noop handler when all handlers are nil")
	}
}
