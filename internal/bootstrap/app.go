// Package bootstrap: 서버 실행 단위와 기본 로거
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReloadFunc: SIGHUP 수신 시 호출되는 재적재 함수 (예: CSV 데이터셋)
type ReloadFunc func(ctx context.Context) error

// ServerApp: HTTP 서버를 포함하는 애플리케이션 실행 단위입니다.
type ServerApp struct {
	Name            string
	Logger          *slog.Logger
	Server          *http.Server
	ShutdownTimeout time.Duration

	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string
	H2C         bool

	reload ReloadFunc
	hangup chan os.Signal
}

// NewServerApp: 새로운 ServerApp 인스턴스를 생성합니다.
func NewServerApp(name string, logger *slog.Logger, server *http.Server, shutdownTimeout time.Duration) *ServerApp {
	return &ServerApp{
		Name:            name,
		Logger:          logger,
		Server:          server,
		ShutdownTimeout: shutdownTimeout,
	}
}

// WithTLS: TLS 설정을 추가합니다.
func (a *ServerApp) WithTLS(enabled bool, certPath, keyPath string) *ServerApp {
	a.TLSEnabled = enabled
	a.TLSCertPath = certPath
	a.TLSKeyPath = keyPath
	return a
}

// WithH2C: 평문 HTTP/2 핸들러 사용 여부를 기록합니다 (로그 용도).
func (a *ServerApp) WithH2C(enabled bool) *ServerApp {
	a.H2C = enabled
	return a
}

// WithReload: SIGHUP마다 fn을 실행합니다. 실패해도 서버는 계속 동작합니다.
func (a *ServerApp) WithReload(fn ReloadFunc) *ServerApp {
	a.reload = fn
	return a
}

func (a *ServerApp) protocol() string {
	switch {
	case a.TLSEnabled:
		return "https (HTTP/2)"
	case a.H2C:
		return "http (h2c)"
	default:
		return "http"
	}
}

// Run: 서버를 실행하고 SIGINT/SIGTERM 또는 ctx 취소 시 graceful shutdown 합니다.
func (a *ServerApp) Run(ctx context.Context) error {
	if a == nil {
		return nil
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)

	a.Logger.Info("server_start",
		slog.String("name", a.Name),
		slog.String("addr", a.Server.Addr),
		slog.String("protocol", a.protocol()),
		slog.Bool("reload_on_sighup", a.reload != nil),
	)

	g.Go(func() error {
		if err := a.serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	if a.reload != nil {
		g.Go(func() error {
			a.watchReload(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("wait for goroutines: %w", err)
	}
	return nil
}

func (a *ServerApp) serve() error {
	if a.TLSEnabled {
		return a.Server.ListenAndServeTLS(a.TLSCertPath, a.TLSKeyPath)
	}
	return a.Server.ListenAndServe()
}

func (a *ServerApp) shutdown() error {
	a.Logger.Info("shutdown_signal_received", slog.String("name", a.Name))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("server_shutdown_failed", slog.Any("error", err))
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.Logger.Info("server_stopped", slog.String("name", a.Name))
	return nil
}

// watchReload: ctx가 끝날 때까지 SIGHUP을 받아 reload를 순차 실행합니다.
func (a *ServerApp) watchReload(ctx context.Context) {
	hangup := a.hangup
	if hangup == nil {
		hangup = make(chan os.Signal, 1)
		signal.Notify(hangup, syscall.SIGHUP)
		defer signal.Stop(hangup)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			started := time.Now()
			if err := a.reload(ctx); err != nil {
				a.Logger.Error("reload_failed", slog.String("name", a.Name), slog.Any("error", err))
				continue
			}
			a.Logger.Info("reload_complete",
				slog.String("name", a.Name),
				slog.Duration("took", time.Since(started)),
			)
		}
	}
}
