package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"visitgate/internal/observability"
)

// Telemetry opens a span per request and records the request counter and
// duration histogram. metrics may be nil; the span is still produced through
// the global tracer provider.
func Telemetry(metrics *observability.Metrics) gin.HandlerFunc {
	tracer := otel.Tracer("visitgate.http")
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", status),
		)
		span.End()
		metrics.RecordRequest(ctx, c.FullPath(), c.Request.Method, status, time.Since(start))
	}
}
