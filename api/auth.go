package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chainhr/payportal/internal/auth"
	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/upstream"
)

const sessionTTL = 24 * time.Hour

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func (s *Server) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if req.LoginID == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, "login_id and password are required"))
	}
	if err := s.sdClient.Count("portal.login", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	result, err := s.upstream.Login(c.Request().Context(), req.LoginID, req.Password)
	if err != nil {
		if upstream.IsPermissionDenied(err) {
			return c.JSON(http.StatusUnauthorized, errorEnvelope(upstreamUnauthorized, "invalid credentials"))
		}
		return fmt.Errorf("fail to login, err: %w", err)
	}

	session := &types.Session{
		ID:            uuid.New().String(),
		UpstreamToken: result.Token,
		User:          result.User,
		CreatedAt:     time.Now(),
	}
	if err := s.redis.SetSession(c.Request().Context(), session, sessionTTL); err != nil {
		return fmt.Errorf("fail to store session, err: %w", err)
	}

	token, err := auth.GenerateSessionToken(session.ID, s.cfg.Server.JwtSecret)
	if err != nil {
		return fmt.Errorf("fail to issue session token, err: %w", err)
	}

	return ok(c, loginResponse{Token: token, User: result.User})
}

func (s *Server) Logout(c echo.Context) error {
	session := currentSession(c)
	if session == nil {
		return c.NoContent(http.StatusOK)
	}
	if err := s.redis.DeleteSession(c.Request().Context(), session.ID); err != nil {
		s.logger.Errorf("fail to delete session, err: %v", err)
	}
	return ok(c, nil)
}
