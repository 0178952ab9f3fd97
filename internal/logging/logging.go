// Package logging: tint 핸들러, lumberjack 로테이션, 요청/트레이스 상관관계를 묶은 slog 구성
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config: 로깅 설정입니다.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string // 로그 디렉토리 (비어있으면 stdout만)
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig: 기본 로깅 설정을 반환합니다.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Dir:        "/app/logs",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

const (
	serviceLogFileName  = "agency-dashboard.log"
	combinedLogFileName = "combined.log"
)

type requestIDKey struct{}

// WithRequestID: 요청 ID를 context에 담습니다. 이 context로 남긴 로그에 request_id가 붙습니다.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom: context에 담긴 요청 ID
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewLoggerWithOTel: 로거를 생성하고 기본 로거로 지정합니다.
// enableOTel이 true면 trace_id/span_id를 함께 기록합니다.
func NewLoggerWithOTel(cfg Config, enableOTel bool) (*slog.Logger, error) {
	level := ParseLevel(cfg.Level)
	logDir := strings.TrimSpace(cfg.Dir)
	if logDir == "" {
		logger := slog.New(newHandler(os.Stdout, level, false, enableOTel))
		slog.SetDefault(logger)
		return logger, nil
	}

	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf(
			"invalid log config: size=%d backups=%d age_days=%d",
			cfg.MaxSizeMB,
			cfg.MaxBackups,
			cfg.MaxAgeDays,
		)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	serviceFile := rotatingFile(filepath.Join(logDir, serviceLogFileName), cfg, 1)
	combinedFile := rotatingFile(filepath.Join(logDir, combinedLogFileName), cfg, 3)

	writer := io.MultiWriter(os.Stdout, serviceFile, combinedFile)
	logger := slog.New(newHandler(writer, level, true, enableOTel))
	slog.SetDefault(logger)
	logger.Info("file_logging_enabled",
		slog.String("path", serviceFile.Filename),
		slog.String("combined", combinedFile.Filename),
		slog.Bool("otel_correlation", enableOTel),
	)
	return logger, nil
}

func rotatingFile(path string, cfg Config, sizeFactor int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB * sizeFactor,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func newHandler(writer io.Writer, level slog.Level, noColor bool, enableOTel bool) slog.Handler {
	return &ContextHandler{
		inner: tint.NewHandler(writer, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			AddSource:  true,
			NoColor:    noColor,
		}),
		traceIDs: enableOTel,
	}
}

// ParseLevel: 문자열 로그 레벨 해석. 알 수 없으면 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextHandler: context의 request_id와 (선택) trace_id/span_id를 레코드에 추가합니다.
type ContextHandler struct {
	inner    slog.Handler
	traceIDs bool
}

// NewContextHandler: 임의 핸들러를 ContextHandler로 감쌉니다.
func NewContextHandler(inner slog.Handler, traceIDs bool) *ContextHandler {
	return &ContextHandler{inner: inner, traceIDs: traceIDs}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestIDFrom(ctx); id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}
	if h.traceIDs {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			record.AddAttrs(
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
		}
	}
	if err := h.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("handle log record: %w", err)
	}
	return nil
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), traceIDs: h.traceIDs}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name), traceIDs: h.traceIDs}
}
