package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// etagWriter: 응답 본문을 버퍼에만 모아두고 ETag 계산 뒤 한 번에 씁니다.
type etagWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *etagWriter) WriteHeader(code int) {
	w.status = code
}

func (w *etagWriter) WriteHeaderNow() {}

func (w *etagWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *etagWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *etagWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *etagWriter) Written() bool {
	return w.body.Len() > 0 || w.status != 0
}

// ETag: prefixes 아래 GET 응답에 ETag를 붙이고 If-None-Match가 일치하면 304를 반환합니다.
// 데이터셋은 기동 후 변하지 않으므로 목록 응답의 재전송을 줄입니다.
func ETag(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || !hasAnyPrefix(c.Request.URL.Path, prefixes) {
			c.Next()
			return
		}

		original := c.Writer
		writer := &etagWriter{ResponseWriter: original, body: new(bytes.Buffer)}
		c.Writer = writer

		c.Next()

		c.Writer = original
		status := writer.Status()

		if status != http.StatusOK || writer.body.Len() == 0 {
			flush(original, status, writer.body.Bytes())
			return
		}

		hash := sha256.Sum256(writer.body.Bytes())
		etag := `"` + hex.EncodeToString(hash[:8]) + `"`
		original.Header().Set("ETag", etag)
		if original.Header().Get("Cache-Control") == "" {
			original.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
		}

		if c.GetHeader("If-None-Match") == etag {
			original.Header().Del("Content-Length")
			original.WriteHeader(http.StatusNotModified)
			original.WriteHeaderNow()
			return
		}
		flush(original, status, writer.body.Bytes())
	}
}

func flush(w gin.ResponseWriter, status int, body []byte) {
	w.WriteHeader(status)
	if len(body) == 0 {
		w.WriteHeaderNow()
		return
	}
	_, _ = w.Write(body)
}
