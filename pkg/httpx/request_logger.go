package httpx

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/dms_events/internal/ports"
)

// RequestLogger — middleware для структурного лога HTTP-запросов.
// Служебные маршруты (/metrics, /ping, /healthz) не логируются.
func RequestLogger(log ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		switch c.FullPath() {
		case "/metrics", "/ping", "/healthz":
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		// request_id/trace_id логгер берёт из контекста (RequestIDMiddleware стоит раньше)
		ctx := c.Request.Context()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"duration", time.Since(start).String(),
			"size", c.Writer.Size(),
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Errorw(ctx, "http request", fields...)
		case status >= 400:
			log.Warnw(ctx, "http request", fields...)
		default:
			log.Infow(ctx, "http request", fields...)
		}
	}
}
