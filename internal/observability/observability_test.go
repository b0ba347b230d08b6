package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"agri-dashboard/internal/config"
)

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})
	logger.Info("hello", "crop", "mango")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json handler output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["crop"] != "mango" {
		t.Errorf("crop attr = %v, want mango", entry["crop"])
	}

	buf.Reset()
	logger = NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "text"})
	logger.Info("hello", "crop", "neem")
	if !strings.Contains(buf.String(), "crop=neem") {
		t.Errorf("text handler output = %q", buf.String())
	}
}

func TestNewLoggerTo_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "text"})
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn should be logged, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty ctx = %q, want empty", got)
	}
}

func TestStartSpan_ChildInheritsTrace(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "GET /aggregate")
	_, child := StartSpan(ctx, "mongo.aggregate")

	if child.TraceID != parent.TraceID {
		t.Errorf("child trace %q != parent trace %q", child.TraceID, parent.TraceID)
	}
	if child.ParentID != parent.SpanID {
		t.Errorf("child ParentID = %q, want %q", child.ParentID, parent.SpanID)
	}
	if GetSpan(ctx) != parent {
		t.Error("GetSpan() should return the span stored in ctx")
	}
}

func TestSpan_Finish(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "debug", Format: "text"})

	_, span := StartSpan(context.Background(), "mongo.find")
	span.SetTag("collection", "agri_demand")
	span.Finish(logger)

	if span.Duration <= 0 {
		t.Error("Finish() should record a positive duration")
	}
	out := buf.String()
	if !strings.Contains(out, "operation=mongo.find") || !strings.Contains(out, "collection=agri_demand") {
		t.Errorf("span log = %q", out)
	}

	buf.Reset()
	_, span = StartSpan(context.Background(), "mongo.distinct")
	span.SetError(errors.New("boom"))
	span.Finish(logger)
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("failed span should log at warn, got %q", buf.String())
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "text"})

	ctx := WithRequestID(context.Background(), "abc123")
	ctx, span := StartSpan(ctx, "GET /")
	RequestLogger(ctx, base).Info("rendered")

	out := buf.String()
	if !strings.Contains(out, "request_id=abc123") {
		t.Errorf("missing request_id in %q", out)
	}
	if !strings.Contains(out, "trace_id="+span.TraceID) {
		t.Errorf("missing trace_id in %q", out)
	}
}
