package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ContactLimitsCORS: /contact-limits 전용 고정 CORS 헤더.
// 오류 응답을 포함한 모든 응답에 붙으며 OPTIONS preflight는 204로 끝냅니다.
func ContactLimitsCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CORS: 대시보드 API는 origin 허용 목록으로, fixedPaths는 ContactLimitsCORS 고정 헤더로 처리합니다.
func CORS(allowOrigins []string, fixedPaths ...string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
	}
	cfg.AllowCredentials = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	cfg.ExposeHeaders = []string{RequestIDHeader, "ETag"}
	cfg.MaxAge = 12 * time.Hour
	dashboard := cors.New(cfg)

	fixed := make(map[string]bool, len(fixedPaths))
	for _, p := range fixedPaths {
		fixed[p] = true
	}
	contactLimits := ContactLimitsCORS()

	return func(c *gin.Context) {
		if fixed[c.Request.URL.Path] {
			contactLimits(c)
			return
		}
		dashboard(c)
	}
}
