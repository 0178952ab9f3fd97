// Package middleware: 공통 HTTP 미들웨어
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/park285/agency-dashboard/internal/logging"
)

// RequestIDHeader: 요청 ID 헤더
const RequestIDHeader = "X-Request-ID"

// RequestID: 요청 ID를 받아오거나 새로 만들어 응답 헤더와 요청 context에 기록합니다.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
