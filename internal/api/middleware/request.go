// Package middleware provides HTTP middleware for the Gin router.
//
// Go Learning Note: the Gin middleware pattern.
// A gin.HandlerFunc runs before the route handler, calls c.Next() to hand
// control down the chain and can inspect the response once c.Next() returns.
// Anything it stores with c.Set is visible to later handlers in the same
// request.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/pkg/utils"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID reuses a valid incoming X-Request-ID or mints a new one, echoes it
// on the response and stores it under RequestIDKey.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !utils.ValidRequestID(id) {
			id = utils.NewRequestID()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler has finished,
// including the last error the handler recorded with c.Error.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqLogger := logger.With(RequestIDKey, c.GetString(RequestIDKey))
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			reqLogger.ErrorContext(c.Request.Context(), "http_request", attrs...)
		case status >= 400:
			reqLogger.WarnContext(c.Request.Context(), "http_request", attrs...)
		default:
			reqLogger.InfoContext(c.Request.Context(), "http_request", attrs...)
		}
	}
}
