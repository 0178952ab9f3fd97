package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/httperror"
	"github.com/park285/agency-dashboard/internal/quota"
)

// resolveUser: 요청의 사용자 ID를 확인하고 디렉터리에 존재하는지 검사합니다.
// 세션 저장소 장애는 500, 세션 없음은 401, 디렉터리에 없는 사용자는 404입니다.
// 실패하면 {"error": ...} 응답을 쓰고 false를 반환합니다.
func (s *Server) resolveUser(c *gin.Context) (string, bool) {
	if err := auth.LookupError(c); err != nil {
		s.writeContactLimitsError(c, err)
		return "", false
	}
	userID := auth.UserID(c)
	if userID == "" {
		s.writeContactLimitsError(c, quota.ErrUnauthenticated)
		return "", false
	}
	if _, err := s.identities.GetUser(c.Request.Context(), userID); err != nil {
		s.writeContactLimitsError(c, err)
		return "", false
	}
	return userID, true
}

// writeContactLimitsError: 401/404/500을 {"error": message} 형태로 씁니다. 500은 원문 메시지입니다.
func (s *Server) writeContactLimitsError(c *gin.Context, err error) {
	apiErr := httperror.FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "contact_limits_failed",
			slog.String("method", c.Request.Method),
			slog.Any("error", err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{Error: apiErr.Message})
}

func writeRefusal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, RefusalResponse{
		Success: false,
		Message: httperror.MessageLimitExceeded,
	})
}

// handleContactLimitsGet: 현재 한도 상태 (저장 없음)
func (s *Server) handleContactLimitsGet(c *gin.Context) {
	userID, ok := s.resolveUser(c)
	if !ok {
		return
	}
	st, err := s.quota.Status(c.Request.Context(), userID)
	if err != nil {
		s.writeContactLimitsError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleContactLimitsPost: 열람 1회 차감. 한도 도달 시 403
func (s *Server) handleContactLimitsPost(c *gin.Context) {
	userID, ok := s.resolveUser(c)
	if !ok {
		return
	}
	res, err := s.quota.Increment(c.Request.Context(), userID)
	if errors.Is(err, quota.ErrLimitExceeded) {
		writeRefusal(c)
		return
	}
	if err != nil {
		s.writeContactLimitsError(c, err)
		return
	}
	c.JSON(http.StatusOK, IncrementResponse{
		Success:   true,
		Count:     res.Count,
		Limit:     res.Limit,
		Remaining: res.Remaining,
	})
}

// handleContactLimitsDelete: 오늘 카운트를 0으로 리셋 (비운영 환경 전용)
func (s *Server) handleContactLimitsDelete(c *gin.Context) {
	userID, ok := s.resolveUser(c)
	if !ok {
		return
	}
	st, err := s.quota.Reset(c.Request.Context(), userID)
	if err != nil {
		s.writeContactLimitsError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{
		Success:   true,
		Count:     st.Count,
		Limit:     st.Limit,
		Remaining: st.Remaining,
		Date:      st.Date,
	})
}
