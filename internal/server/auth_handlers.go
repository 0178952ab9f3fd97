package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/config"
	"github.com/park285/agency-dashboard/internal/httperror"
)

func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	allowed, retryAfter, err := s.throttle.Allowed(ctx, ip)
	if err != nil {
		s.logger.ErrorContext(ctx, "login_throttle_failed", slog.Any("error", err))
		httperror.Abort(c, err)
		return
	}
	if !allowed {
		s.logger.WarnContext(ctx, "login_rate_limited", slog.String("ip", ip))
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		httperror.Abort(c, auth.ErrRateLimited)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperror.Abort(c, httperror.NewBindError(err))
		return
	}

	user, err := s.identities.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			failCount, recErr := s.throttle.RecordFailure(ctx, ip)
			if recErr != nil {
				s.logger.WarnContext(ctx, "login_failure_record_failed", slog.Any("error", recErr))
			}
			s.logger.WarnContext(ctx, "login_failed",
				slog.String("ip", ip),
				slog.Int64("fail_count", failCount),
			)
		}
		httperror.Abort(c, err)
		return
	}
	s.throttle.RecordSuccess(ctx, ip)

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "session_create_failed", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Session store unavailable"})
		return
	}

	token := auth.SignSessionID(session.ID, s.cfg.SessionSecret)
	auth.SetSecureCookie(c, auth.SessionCookieName, token, int(config.SessionConfig.AbsoluteTimeout.Seconds()), s.cfg.ForceHTTPS)

	s.logger.InfoContext(ctx, "user_logged_in", slog.String("user_id", user.ID), slog.String("ip", ip))
	c.JSON(http.StatusOK, LoginResponse{Status: "ok", Token: token, User: user})
}

func (s *Server) handleLogout(c *gin.Context) {
	if sessionID := auth.SessionID(c); sessionID != "" {
		s.sessions.DeleteSession(c.Request.Context(), sessionID)
	}
	auth.ClearSecureCookie(c, auth.SessionCookieName, s.cfg.ForceHTTPS)
	c.JSON(http.StatusOK, StatusResponse{Status: "ok", Message: "Logout successful"})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.identities.GetUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		httperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperror.Abort(c, httperror.NewBindError(err))
		return
	}
	user, err := s.identities.CreateUser(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		httperror.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
