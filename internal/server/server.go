// Package server: HTTP 서버 및 라우팅
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/config"
	"github.com/park285/agency-dashboard/internal/dataset"
	"github.com/park285/agency-dashboard/internal/metrics"
	"github.com/park285/agency-dashboard/internal/middleware"
	"github.com/park285/agency-dashboard/internal/quota"
	"github.com/park285/agency-dashboard/internal/status"
)

// 일일 열람 한도 API 경로 (두 경로 모두 같은 핸들러)
var contactLimitsPaths = []string{"/contact-limits", "/api/contact-limits"}

// Identities: 사용자 디렉터리
type Identities interface {
	GetUser(ctx context.Context, userID string) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
	CreateUser(ctx context.Context, email, password, displayName string) (*auth.User, error)
}

// LoginGuard: 로그인 실패 누적 차단
type LoginGuard interface {
	Allowed(ctx context.Context, ip string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, ip string) (int64, error)
	RecordSuccess(ctx context.Context, ip string)
}

// QuotaTracker: 일일 열람 한도
type QuotaTracker interface {
	Limit() int
	Status(ctx context.Context, userID string) (quota.Status, error)
	Increment(ctx context.Context, userID string) (quota.IncrementResult, error)
	Reset(ctx context.Context, userID string) (quota.Status, error)
}

// Deps: 서버가 사용하는 구성 요소
type Deps struct {
	Sessions   auth.SessionProvider
	Identities Identities
	Throttle   LoginGuard
	Quota      QuotaTracker
	Datasets   *dataset.Source
	Status     *status.Collector
}

// Server: HTTP 서버
type Server struct {
	engine *gin.Engine
	cfg    *config.Config
	logger *slog.Logger

	sessions   auth.SessionProvider
	identities Identities
	throttle   LoginGuard
	quota      QuotaTracker
	datasets   *dataset.Source
	status     *status.Collector
}

// New: 서버 생성
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// OTel 미들웨어: 활성화된 경우 모든 HTTP 요청을 추적함 (가장 앞에 배치)
	if cfg.OTELEnabled {
		serviceName := strings.TrimSpace(cfg.OTELServiceName)
		if serviceName == "" {
			serviceName = "agency-dashboard"
		}
		engine.Use(otelgin.Middleware(serviceName))
		logger.Info("otel_http_middleware_enabled", slog.String("service", serviceName))
	}

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(logger, "/health", "/metrics"))
	engine.Use(auth.SecurityHeadersMiddleware())
	engine.Use(middleware.CORS(cfg.CORSAllowedOrigins, contactLimitsPaths...))
	engine.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger).Middleware())
	engine.Use(middleware.ETag("/api/datasets/"))
	engine.Use(auth.Identify(deps.Sessions, cfg.SessionSecret, logger))

	s := &Server{
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
		sessions:   deps.Sessions,
		identities: deps.Identities,
		throttle:   deps.Throttle,
		quota:      deps.Quota,
		datasets:   deps.Datasets,
		status:     deps.Status,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	for _, path := range contactLimitsPaths {
		s.setupContactLimitsRoutes(s.engine.Group(path))
	}

	api := s.engine.Group("/api")
	s.setupAuthRoutes(api)

	authenticated := api.Group("")
	authenticated.Use(auth.RequireUser())
	s.setupDatasetRoutes(authenticated)
	authenticated.GET("/status", s.handleAggregatedStatus)

	s.setupHealthRoute()
	s.setupMetricsRoute()
}

// setupContactLimitsRoutes: 한도 조회/증가, 비운영 환경에서만 리셋
func (s *Server) setupContactLimitsRoutes(g *gin.RouterGroup) {
	g.GET("", s.handleContactLimitsGet)
	g.POST("", s.handleContactLimitsPost)
	g.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if !s.cfg.IsProduction() {
		g.DELETE("", s.handleContactLimitsDelete)
	}
}

// setupAuthRoutes: 인증 관련 라우트 (RequireUser 없음)
func (s *Server) setupAuthRoutes(api *gin.RouterGroup) {
	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.GET("/me", auth.RequireUser(), s.handleMe)
	if !s.cfg.IsProduction() {
		authGroup.POST("/register", s.handleRegister)
	}
}

// setupDatasetRoutes: 데이터셋 조회와 연락처 열람
func (s *Server) setupDatasetRoutes(authenticated *gin.RouterGroup) {
	authenticated.GET("/datasets/:name", s.handleDataset)
	authenticated.GET("/contacts", s.handleContacts)
	authenticated.POST("/contacts/:id/reveal", s.handleRevealContact)
}

func (s *Server) setupHealthRoute() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) setupMetricsRoute() {
	s.engine.GET("/metrics",
		metrics.APIKeyAuth(s.cfg.MetricsAPIKey),
		gin.WrapH(promhttp.Handler()),
	)
}

// Handler: 라우팅이 구성된 핸들러 (테스트용)
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer: http.Server 구성. TLS가 꺼져 있고 HTTP2가 켜져 있으면 h2c로 감쌉니다.
func (s *Server) HTTPServer() *http.Server {
	var handler http.Handler = s.engine
	if s.H2C() {
		handler = h2c.NewHandler(s.engine, &http2.Server{})
	}
	return &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// H2C: 평문 HTTP/2 사용 여부
func (s *Server) H2C() bool {
	return s.cfg.HTTP2Enabled && !s.cfg.TLSEnabled
}

func (s *Server) handleAggregatedStatus(c *gin.Context) {
	st := s.status.GetAggregatedStatus(c.Request.Context())
	code := http.StatusOK
	if !st.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}
