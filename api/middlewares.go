package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chainhr/payportal/internal/auth"
	"github.com/chainhr/payportal/internal/types"
)

func (s *Server) statsdMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Milliseconds()

		// Send metrics to statsd
		_ = s.sdClient.Incr("http.requests", []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Timing("http.response_time", time.Duration(duration)*time.Millisecond, []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Incr("http.status."+fmt.Sprint(c.Response().Status), []string{"path:" + c.Path(), "method:" + c.Request().Method}, 1)

		return err
	}
}

func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			return c.JSON(http.StatusUnauthorized, errorEnvelope(upstreamUnauthorized, "Missing token"))
		}

		sessionID, err := auth.ValidateSessionToken(tokenStr, s.cfg.Server.JwtSecret)
		if err != nil {
			s.logger.Warnf("fail to validate token, err: %v", err)
			return c.JSON(http.StatusUnauthorized, errorEnvelope(upstreamUnauthorized, "Invalid token"))
		}

		session, err := s.redis.GetSession(c.Request().Context(), sessionID)
		if err != nil {
			s.logger.Warnf("fail to load session %s, err: %v", sessionID, err)
			return c.JSON(http.StatusUnauthorized, errorEnvelope(upstreamUnauthorized, "Session expired"))
		}

		c.Set("session", session)
		return next(c)
	}
}

func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[len("Bearer "):]
	}
	return c.Request().Header.Get("XAUTH")
}

func currentSession(c echo.Context) *types.Session {
	session, ok := c.Get("session").(*types.Session)
	if !ok {
		return nil
	}
	return session
}
