package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "req_id"
)

// requestID propagates the caller's X-Request-ID or mints a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog logs one line per request, at a level chosen by the status code.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"cost_msec", time.Since(start).Milliseconds(),
			"req_id", c.GetString(requestIDKey),
		}
		switch {
		case status >= 500:
			slog.Error("request completed with server error", append(attrs, "errors", c.Errors.String())...)
		case status >= 400:
			slog.Warn("request completed with client error", append(attrs, "errors", c.Errors.String())...)
		default:
			slog.Debug("request completed", attrs...)
		}
	}
}

// recovery turns a handler panic into a 500 response.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered from panic", "panic", r, "req_id", c.GetString(requestIDKey), "stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			}
		}()
		c.Next()
	}
}
