package bootstrap

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/park285/agency-dashboard/internal/logging"
)

// NewLogger: 파일 로깅을 쓸 수 없을 때 사용하는 stdout 로거
func NewLogger() *slog.Logger {
	return slog.New(logging.NewContextHandler(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}), false))
}

// LoggingConfig: 앱 설정의 로그 디렉토리/레벨을 기본 로깅 설정에 덮어씁니다.
func LoggingConfig(logDir, logLevel string) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Dir = logDir
	if logLevel != "" {
		cfg.Level = logLevel
	}
	return cfg
}
