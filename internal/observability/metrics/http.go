package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds the API request instruments.
type HTTPMetrics struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
	responseBytes   metric.Int64Histogram
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tutorly"
	}
	meter := provider.Meter(name + "/api")

	requests, err := meter.Int64Counter("tutorly_api_requests_total")
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("tutorly_api_request_duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("tutorly_api_requests_in_flight")
	if err != nil {
		return nil, err
	}
	// CSV exports can be large; track them separately from JSON responses.
	responseBytes, err := meter.Int64Histogram("tutorly_api_response_bytes")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requests:        requests,
		requestDuration: requestDuration,
		inFlight:        inFlight,
		responseBytes:   responseBytes,
	}, nil
}

// GinMiddleware labels every request by route template and status class.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := routeLabel(c.FullPath())
		ctx := c.Request.Context()
		routeAttr := metric.WithAttributes(FilterAttributes(attribute.String("endpoint", route))...)

		m.inFlight.Add(ctx, 1, routeAttr)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, routeAttr)

		attrs := metric.WithAttributes(FilterAttributes(
			attribute.String("endpoint", route),
			attribute.String("method", c.Request.Method),
			attribute.String("status_code", statusClass(c.Writer.Status())),
		)...)
		m.requests.Add(ctx, 1, attrs)
		m.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		if size := c.Writer.Size(); size > 0 {
			m.responseBytes.Record(ctx, int64(size), attrs)
		}
	}
}

func routeLabel(fullPath string) string {
	if strings.TrimSpace(fullPath) == "" {
		return "unmatched"
	}
	return fullPath
}

// statusClass collapses 207 and 409 into their classes except where the
// directory API gives them distinct meaning.
func statusClass(status int) string {
	switch status {
	case 207, 409, 503:
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
