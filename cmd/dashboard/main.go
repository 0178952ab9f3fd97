// Package main: 기관/연락처 대시보드 백엔드 엔트리포인트입니다.
// 세션 인증, 데이터셋 조회, 사용자별 일일 연락처 열람 한도 API를 제공합니다.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/bootstrap"
	"github.com/park285/agency-dashboard/internal/config"
	"github.com/park285/agency-dashboard/internal/database"
	"github.com/park285/agency-dashboard/internal/dataset"
	"github.com/park285/agency-dashboard/internal/logging"
	"github.com/park285/agency-dashboard/internal/quota"
	"github.com/park285/agency-dashboard/internal/server"
	"github.com/park285/agency-dashboard/internal/status"
	"github.com/park285/agency-dashboard/internal/telemetry"
)

// Version: 빌드 시 ldflags로 주입됨
var Version = "dev"

func main() {
	// .env 파일 로드 (개발 환경용)
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	logger, err := logging.NewLoggerWithOTel(bootstrap.LoggingConfig(cfg.LogDirectory, cfg.LogLevel), cfg.OTELEnabled)
	if err != nil {
		// 파일 로깅 실패 시 stdout 로거 사용
		logger = bootstrap.NewLogger()
		logger.Warn("file_logging_failed", slog.Any("error", err))
	}

	// 필수 설정 검증 (누락 시 즉시 종료)
	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", slog.Any("error", err))
		os.Exit(1)
	}

	otelProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTELEnabled && cfg.OTELEndpoint != "",
		ServiceName:    cfg.OTELServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		OTLPInsecure:   cfg.OTLPInsecure,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		logger.Warn("otel_init_failed", slog.Any("error", err))
	} else if otelProvider.IsEnabled() {
		logger.Info("otel_initialized",
			slog.String("endpoint", cfg.OTELEndpoint),
			slog.String("service", cfg.OTELServiceName),
			slog.Float64("sample_rate", cfg.OTELSampleRate),
		)
	}

	logger.Info("dashboard_starting",
		slog.String("version", Version),
		slog.String("port", cfg.Port),
		slog.String("env", cfg.Environment),
		slog.String("quota_backend", cfg.QuotaBackend),
		slog.Int("daily_contact_limit", cfg.DailyContactLimit),
	)

	serverApp, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		logger.Error("app_init_failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Deferred cleanup (LIFO 순서)
	defer func() {
		cleanup()
		// OTel Provider 정리 (마지막에 실행)
		if otelProvider != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("otel_shutdown_failed", slog.Any("error", err))
			}
		}
	}()

	if err := serverApp.Run(ctx); err != nil {
		logger.Error("app_run_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initializeApp: 애플리케이션 구성 요소를 초기화합니다.
// 실패해도 cleanup은 항상 non-nil이며 그때까지 연 자원만 정리합니다.
func initializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bootstrap.ServerApp, func(), error) {
	var cleanupFns []func()
	cleanup := func() {
		for i := len(cleanupFns) - 1; i >= 0; i-- {
			cleanupFns[i]()
		}
	}

	// Valkey 클라이언트 (세션, 로그인 제한, valkey 한도 저장소)
	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.ValkeyURL},
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("connect valkey: %w", err)
	}
	cleanupFns = append(cleanupFns, func() {
		valkeyClient.Close()
		logger.Info("valkey_closed")
	})
	logger.Info("valkey_connected", slog.String("addr", cfg.ValkeyURL))

	// 사용자 디렉터리 DB
	dsn := cfg.DBDSN
	if cfg.DBDriver == database.DriverPostgres {
		dsn = cfg.PostgresDSN()
	}
	db, err := database.Open(ctx, database.Config{Driver: cfg.DBDriver, DSN: dsn}, logger)
	if err != nil {
		return nil, cleanup, err
	}
	cleanupFns = append(cleanupFns, func() {
		if err := db.Close(); err != nil {
			logger.Warn("database_close_failed", slog.Any("error", err))
		}
	})

	directory := auth.NewDirectory(db.Gorm(), logger)
	if err := directory.AutoMigrate(ctx); err != nil {
		return nil, cleanup, err
	}
	if cfg.BootstrapUserEmail != "" && cfg.BootstrapUserPassword != "" {
		user, err := directory.EnsureUser(ctx, cfg.BootstrapUserEmail, cfg.BootstrapUserPassword, "")
		if err != nil {
			return nil, cleanup, fmt.Errorf("bootstrap user: %w", err)
		}
		logger.Info("bootstrap_user_ready", slog.String("user_id", user.ID))
	}

	store, err := newQuotaStore(ctx, cfg, valkeyClient, db, directory)
	if err != nil {
		return nil, cleanup, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, cleanup, err
	}
	tracker := quota.NewTracker(store,
		quota.WithLimit(cfg.DailyContactLimit),
		quota.WithLocation(loc),
		quota.WithLogger(logger),
		quota.WithStrict(cfg.QuotaStrict),
	)
	if cfg.QuotaStrict && !tracker.Strict() {
		logger.Warn("quota_strict_unsupported", slog.String("backend", cfg.QuotaBackend))
	}

	datasets := dataset.NewSource(cfg.DataDir, logger)
	if err := datasets.Load(ctx); err != nil {
		return nil, cleanup, fmt.Errorf("load datasets: %w", err)
	}

	statusCollector := status.NewCollector(Version, logger,
		status.Probe{Name: "valkey", Check: func(ctx context.Context) error {
			return valkeyClient.Do(ctx, valkeyClient.B().Ping().Build()).Error()
		}},
		status.Probe{Name: "database", Check: db.Ping},
		status.Probe{Name: "datasets", Check: func(context.Context) error {
			if !datasets.Loaded() {
				return errors.New("datasets not loaded")
			}
			return nil
		}},
	)

	httpServer := server.New(cfg, logger, server.Deps{
		Sessions:   auth.NewValkeySessionStore(valkeyClient, logger),
		Identities: directory,
		Throttle:   auth.NewLoginThrottle(valkeyClient),
		Quota:      tracker,
		Datasets:   datasets,
		Status:     statusCollector,
	})

	serverApp := bootstrap.NewServerApp(
		"agency-dashboard",
		logger,
		httpServer.HTTPServer(),
		30*time.Second,
	).WithTLS(cfg.TLSEnabled, cfg.TLSCertPath, cfg.TLSKeyPath).
		WithH2C(httpServer.H2C()).
		WithReload(datasets.Load)

	return serverApp, cleanup, nil
}

// newQuotaStore: QUOTA_BACKEND에 맞는 한도 저장소
func newQuotaStore(ctx context.Context, cfg *config.Config, client valkey.Client, db *database.Service, directory *auth.Directory) (quota.Store, error) {
	switch cfg.QuotaBackend {
	case config.QuotaBackendValkey:
		return quota.NewValkeyStore(client), nil
	case config.QuotaBackendSQL:
		store := quota.NewSQLStore(db.Gorm())
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return quota.NewMetadataStore(directory), nil
	}
}
