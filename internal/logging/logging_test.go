package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextHandler_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), true))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx = WithRequestID(ctx, "req-1")
	logger.InfoContext(ctx, "quota_reset")

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "trace_id=0102030405060708090a0b0c0d0e0f10", "span_id=0102030405060708"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestContextHandler_WithoutTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), false)).With(slog.String("component", "quota"))

	logger.InfoContext(context.Background(), "quota_status")
	out := buf.String()
	if strings.Contains(out, "request_id") || strings.Contains(out, "trace_id") {
		t.Fatalf("unexpected correlation attrs: %q", out)
	}
	if !strings.Contains(out, "component=quota") {
		t.Fatalf("WithAttrs lost: %q", out)
	}
}

func TestNewLoggerWithOTel_FileOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	if _, err := NewLoggerWithOTel(cfg, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.MaxBackups = 0
	if _, err := NewLoggerWithOTel(cfg, false); err == nil {
		t.Fatal("expected invalid config error")
	}
}
