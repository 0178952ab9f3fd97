// Package auth: 대시보드 사용자 신원, 세션, 인증 미들웨어
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/agency-dashboard/internal/config"
)

const (
	SessionCookieName = "dashboard_session"
	sessionKeyPrefix  = "session:dashboard:"
)

// Session: 로그인 세션 정보
type Session struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// SessionProvider: 세션 저장소 인터페이스
type SessionProvider interface {
	CreateSession(ctx context.Context, userID string) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string)
	Touch(ctx context.Context, sessionID string) (*Session, error)
}

// ValkeySessionStore: Valkey 기반 세션 저장소
type ValkeySessionStore struct {
	client   valkey.Client
	logger   *slog.Logger
	ttl      time.Duration
	absolute time.Duration
}

// NewValkeySessionStore: Valkey 세션 저장소 생성
func NewValkeySessionStore(client valkey.Client, logger *slog.Logger) *ValkeySessionStore {
	return &ValkeySessionStore{
		client:   client,
		logger:   logger,
		ttl:      config.SessionConfig.ExpiryDuration,
		absolute: config.SessionConfig.AbsoluteTimeout,
	}
}

// CreateSession: 사용자에 묶인 새 세션 생성
func (s *ValkeySessionStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("create session: empty user id")
	}
	now := time.Now()
	session := &Session{
		ID:                generateSessionID(),
		UserID:            userID,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.ttl),
		AbsoluteExpiresAt: now.Add(s.absolute),
	}

	if err := s.storeSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Debug("session_created",
		slog.String("session_id", truncateSessionID(session.ID)),
		slog.String("user_id", userID),
		slog.Duration("ttl", s.ttl),
	)
	return session, nil
}

func (s *ValkeySessionStore) storeSession(ctx context.Context, session *Session) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	cmd := s.client.B().Set().Key(sessionKeyPrefix + session.ID).Value(string(data)).ExSeconds(int64(s.ttl.Seconds())).Build()
	if err := s.client.Do(storeCtx, cmd).Error(); err != nil {
		s.logger.Error("session_store_failed",
			slog.String("session_id", truncateSessionID(session.ID)),
			slog.Any("error", err),
		)
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// GetSession: 세션 조회. 없거나 절대 만료된 경우 (nil, nil)
func (s *ValkeySessionStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	getCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp := s.client.Do(getCtx, s.client.B().Get().Key(sessionKeyPrefix+sessionID).Build())
	data, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if time.Now().After(session.AbsoluteExpiresAt) {
		s.DeleteSession(ctx, sessionID)
		return nil, nil
	}
	return &session, nil
}

// Touch: 유효한 세션의 TTL을 연장합니다 (sliding expiration).
func (s *ValkeySessionStore) Touch(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return session, err
	}

	ttl := min(s.ttl, time.Until(session.AbsoluteExpiresAt))
	expireCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	cmd := s.client.B().Expire().Key(sessionKeyPrefix + sessionID).Seconds(max(int64(ttl.Seconds()), 1)).Build()
	if err := s.client.Do(expireCtx, cmd).Error(); err != nil {
		return nil, fmt.Errorf("refresh session ttl: %w", err)
	}
	return session, nil
}

// DeleteSession: 세션 삭제
func (s *ValkeySessionStore) DeleteSession(ctx context.Context, sessionID string) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := s.client.Do(deleteCtx, s.client.B().Del().Key(sessionKeyPrefix+sessionID).Build()).Error(); err != nil {
		s.logger.Error("session_delete_failed", slog.String("session_id", truncateSessionID(sessionID)), slog.Any("error", err))
	}
}

// ===== Security Utilities =====

// SignSessionID: HMAC 서명 추가
func SignSessionID(sessionID, secret string) string {
	if secret == "" {
		return sessionID
	}
	return sessionID + "." + sign(sessionID, secret)
}

// ValidateSessionSignature: HMAC 서명 검증
func ValidateSessionSignature(fullID, secret string) (string, bool) {
	if secret == "" {
		return fullID, fullID != ""
	}
	sessionID, providedSig, ok := strings.Cut(fullID, ".")
	if !ok || sessionID == "" {
		return "", false
	}
	if !hmac.Equal([]byte(providedSig), []byte(sign(sessionID, secret))) {
		return "", false
	}
	return sessionID, true
}

func sign(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// SetSecureCookie: 보안 쿠키 설정
func SetSecureCookie(c *gin.Context, name, value string, maxAge int, forceHTTPS bool) {
	isSecure := c.Request.TLS != nil || forceHTTPS
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", isSecure, true)
}

// ClearSecureCookie: 쿠키 삭제
func ClearSecureCookie(c *gin.Context, name string, forceHTTPS bool) {
	SetSecureCookie(c, name, "", -1, forceHTTPS)
}

// SecurityHeadersMiddleware: 보안 헤더 추가
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "frame-ancestors 'none'")
		c.Next()
	}
}

// ===== Helpers =====

func generateSessionID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func truncateSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8] + "..."
}
