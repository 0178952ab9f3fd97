// Package database: gorm 연결 (PostgreSQL 또는 내장 SQLite)
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config: 연결 정보와 풀 설정
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// withDefaults: 비어 있는 풀 설정을 기본값으로 채웁니다.
func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.Driver == DriverSQLite {
		// SQLite는 단일 writer
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
	}
	return c
}

// Service: gorm 인스턴스와 하부 sql.DB
type Service struct {
	driver string
	db     *sql.DB
	gormDB *gorm.DB
	logger *slog.Logger
}

// Open: 드라이버에 맞춰 연결하고 Ping으로 확인합니다.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Service, error) {
	cfg = cfg.withDefaults()

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	db, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	logger.Info("database_connected", slog.String("driver", cfg.Driver))

	return &Service{driver: cfg.Driver, db: db, gormDB: gormDB, logger: logger}, nil
}

// Gorm: gorm 인스턴스
func (s *Service) Gorm() *gorm.DB { return s.gormDB }

// Driver: 연결 드라이버 이름
func (s *Service) Driver() string { return s.driver }

// Ping: 헬스 체크
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", s.driver, err)
	}
	return nil
}

// Close: 연결 종료
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.driver, err)
	}
	return nil
}
