// Package metrics exposes OpenTelemetry instruments for the HTTP layer.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
)

// HTTPMetrics captures low-cardinality HTTP server metrics.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the HTTP metrics instruments.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	meter := otel.GetMeterProvider().Meter("feeledger/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requestDuration: requestDuration, inFlight: inFlight}, nil
}

// GinMiddleware records request duration and in-flight counts keyed by route
// template, never raw paths.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.route", endpoint),
			attribute.String("http.method", c.Request.Method),
		}

		ctx := c.Request.Context()
		m.inFlight.Add(ctx, 1, metric.WithAttributes(attrs...))
		start := time.Now()

		c.Next()

		m.inFlight.Add(context.WithoutCancel(ctx), -1, metric.WithAttributes(attrs...))
		attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())))
		m.requestDuration.Record(context.WithoutCancel(ctx),
			float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attrs...),
		)
	}
}

var Module = fx.Module("metrics",
	fx.Provide(NewHTTPMetrics),
)
