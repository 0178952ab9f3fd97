// Package config: 설정 관리
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 저장소 백엔드 종류
const (
	QuotaBackendMetadata = "metadata"
	QuotaBackendValkey   = "valkey"
	QuotaBackendSQL      = "sql"
)

// Config: 애플리케이션 설정
type Config struct {
	// 서버 설정
	Port         string
	Environment  string
	LogLevel     string
	ForceHTTPS   bool
	LogDirectory string
	HTTP2Enabled bool

	// TLS 설정 (HTTP/2 지원)
	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string

	// 인증 설정
	SessionSecret         string
	BootstrapUserEmail    string
	BootstrapUserPassword string

	// CORS / Rate limit
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Metrics 설정
	MetricsAPIKey string

	// 외부 저장소
	ValkeyURL  string
	DBDriver   string
	DBDSN      string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// 열람 한도
	DailyContactLimit int
	QuotaBackend      string
	QuotaStrict       bool
	QuotaTimezone     string

	// 데이터셋
	DataDir string

	// OTEL 설정
	OTELEnabled     bool
	OTELEndpoint    string
	OTELServiceName string
	OTLPInsecure    bool
	OTELSampleRate  float64
}

// SessionConfig: 세션 관련 상수
var SessionConfig = struct {
	ExpiryDuration  time.Duration
	AbsoluteTimeout time.Duration
}{
	ExpiryDuration:  30 * time.Minute,
	AbsoluteTimeout: 8 * time.Hour,
}

// Load: 환경 변수에서 설정 로드
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "30100"),
		Environment:  getEnv("ENV", "production"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ForceHTTPS:   getEnvBool("FORCE_HTTPS", true),
		LogDirectory: getEnv("LOG_DIR", "/app/logs"),
		HTTP2Enabled: getEnvBool("HTTP2_ENABLED", true),

		TLSEnabled:  getEnvBool("TLS_ENABLED", false),
		TLSCertPath: getEnv("TLS_CERT_PATH", "/certs/localhost.crt"),
		TLSKeyPath:  getEnv("TLS_KEY_PATH", "/certs/localhost.key"),

		SessionSecret:         getEnvAny("SESSION_SECRET", "DASHBOARD_SECRET_KEY"),
		BootstrapUserEmail:    getEnv("BOOTSTRAP_USER_EMAIL", ""),
		BootstrapUserPassword: getEnv("BOOTSTRAP_USER_PASSWORD", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:       getEnvFloat("API_RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("API_RATE_LIMIT_BURST", 40),

		MetricsAPIKey: getEnv("METRICS_API_KEY", ""),

		ValkeyURL:  getEnv("VALKEY_URL", "valkey-cache:6379"),
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBDSN:      getEnv("DB_DSN", ""),
		DBHost:     getEnv("DB_HOST", "postgres"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "dashboard"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "agency_dashboard"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DailyContactLimit: getEnvInt("DAILY_CONTACT_LIMIT", 50),
		QuotaBackend:      strings.ToLower(getEnv("QUOTA_BACKEND", QuotaBackendMetadata)),
		QuotaStrict:       getEnvBool("QUOTA_STRICT", false),
		QuotaTimezone:     getEnv("QUOTA_TIMEZONE", ""),

		DataDir: getEnv("DATA_DIR", "data"),

		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317"),
		OTELServiceName: getEnv("OTEL_SERVICE_NAME", "agency-dashboard"),
		OTLPInsecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELSampleRate:  getEnvFloat("OTEL_SAMPLE_RATE", 1.0),
	}
}

// IsProduction: 운영 모드 여부 (리셋/가입 엔드포인트 비노출)
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Location: 일일 한도 날짜 경계에 쓰는 타임존. 미지정 시 서버 로컬
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.QuotaTimezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return nil, fmt.Errorf("load QUOTA_TIMEZONE: %w", err)
	}
	return loc, nil
}

// PostgresDSN: DB_DSN이 없으면 개별 항목으로 DSN을 조립합니다.
func (c *Config) PostgresDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Validate: 필수 설정 검증 (누락 시 기동 중단)
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SessionSecret) == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	switch c.QuotaBackend {
	case QuotaBackendMetadata, QuotaBackendValkey, QuotaBackendSQL:
	default:
		errs = append(errs, fmt.Errorf("unsupported QUOTA_BACKEND %q", c.QuotaBackend))
	}
	if c.DailyContactLimit <= 0 {
		errs = append(errs, fmt.Errorf("DAILY_CONTACT_LIMIT must be positive, got %d", c.DailyContactLimit))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAny(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for part := range strings.SplitSeq(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
