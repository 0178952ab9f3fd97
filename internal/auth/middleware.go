package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDContextKey    = "auth.user_id"
	sessionIDContextKey = "auth.session_id"
	lookupErrContextKey = "auth.lookup_error"
)

// Identify: 쿠키 또는 Bearer 토큰에서 세션을 찾아 사용자 ID를 컨텍스트에 기록합니다.
// 인증 실패 시에도 요청을 중단하지 않으며 RequireUser가 401을 결정합니다.
// 세션 저장소 조회 자체가 실패하면 LookupError로 남겨 401과 구분합니다.
func Identify(sessions SessionProvider, sessionSecret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.Next()
			return
		}

		sessionID, valid := ValidateSessionSignature(token, sessionSecret)
		if !valid {
			logger.Warn("auth_invalid_signature",
				slog.String("path", c.Request.URL.Path),
				slog.String("session_prefix", truncateSessionID(token)),
			)
			c.Next()
			return
		}

		session, err := sessions.Touch(c.Request.Context(), sessionID)
		if err != nil {
			logger.Error("auth_session_lookup_failed", slog.Any("error", err))
			c.Set(lookupErrContextKey, err)
			c.Next()
			return
		}
		if session == nil {
			c.Next()
			return
		}

		c.Set(userIDContextKey, session.UserID)
		c.Set(sessionIDContextKey, session.ID)
		c.Next()
	}
}

// RequireUser: 식별된 사용자가 없으면 401로 중단합니다.
// 세션 저장소 장애는 500과 원문 메시지로 응답합니다.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := LookupError(c); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// UserID: Identify가 기록한 사용자 ID. 없으면 빈 문자열
func UserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

// LookupError: Identify 단계의 세션 저장소 오류. 없으면 nil
func LookupError(c *gin.Context) error {
	if v, ok := c.Get(lookupErrContextKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// SessionID: Identify가 기록한 세션 ID
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDContextKey)
}

// SessionToken: 서명된 세션 토큰을 쿠키 또는 Authorization 헤더에서 꺼냅니다.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
