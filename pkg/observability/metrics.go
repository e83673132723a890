package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusHandler adapts the scrape handler to a gin route
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler == nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
			return
		}
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// AuthMetrics counts identity events: signups, issued sessions, webhook
// rejections. Counters live alongside the otelgin request instrumentation.
type AuthMetrics struct {
	events metric.Int64Counter
}

// NewAuthMetrics registers the identity event counter
func NewAuthMetrics(provider *sdkmetric.MeterProvider) (*AuthMetrics, error) {
	meter := provider.Meter("gatehouse")

	events, err := meter.Int64Counter(
		"gatehouse_auth_events_total",
		metric.WithDescription("Identity lifecycle events by kind and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register auth event counter: %w", err)
	}

	return &AuthMetrics{events: events}, nil
}

// Record counts one identity event. kind names the operation (signup, token,
// confirm, ...); ok is whether it succeeded.
func (m *AuthMetrics) Record(ctx context.Context, kind string, ok bool) {
	if m == nil {
		return
	}
	m.events.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("ok", ok),
		),
	)
}
