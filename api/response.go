package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// envelope mirrors the upstream response wrapper so the browser sees one
// uniform shape regardless of whether the gateway or the backend produced
// the response.
type envelope struct {
	Code      int         `json:"code"`
	Msg       string      `json:"msg"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

const (
	codeOK               = 0
	upstreamUnauthorized = 401
)

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{
		Code:      codeOK,
		Msg:       "success",
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}

func errorEnvelope(code int, msg string) envelope {
	return envelope{
		Code:      code,
		Msg:       msg,
		Timestamp: time.Now().Unix(),
	}
}
