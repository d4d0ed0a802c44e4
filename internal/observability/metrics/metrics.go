package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes directory-level instruments.
type Metrics struct {
	queries          metric.Int64Counter
	queryDuration    metric.Float64Histogram
	queryFailures    metric.Int64Counter
	searchTruncated  metric.Int64Counter
	staleDiscarded   metric.Int64Counter
	bulkOperations   metric.Int64Counter
	bulkRowsAffected metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the directory metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tutorly"
	}
	meter := provider.Meter(name)

	queries, err := meter.Int64Counter("tutorly_directory_queries_total")
	if err != nil {
		return nil, err
	}
	queryDuration, err := meter.Float64Histogram("tutorly_directory_query_duration_ms")
	if err != nil {
		return nil, err
	}
	queryFailures, err := meter.Int64Counter("tutorly_directory_query_failures_total")
	if err != nil {
		return nil, err
	}
	searchTruncated, err := meter.Int64Counter("tutorly_directory_search_truncated_total")
	if err != nil {
		return nil, err
	}
	staleDiscarded, err := meter.Int64Counter("tutorly_directory_stale_results_total")
	if err != nil {
		return nil, err
	}
	bulkOperations, err := meter.Int64Counter("tutorly_directory_bulk_operations_total")
	if err != nil {
		return nil, err
	}
	bulkRowsAffected, err := meter.Int64Counter("tutorly_directory_bulk_rows_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		queries:          queries,
		queryDuration:    queryDuration,
		queryFailures:    queryFailures,
		searchTruncated:  searchTruncated,
		staleDiscarded:   staleDiscarded,
		bulkOperations:   bulkOperations,
		bulkRowsAffected: bulkRowsAffected,
	}, nil
}

// RecordQuery records one coordinator call and its latency.
func (m *Metrics) RecordQuery(ctx context.Context, strategy string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("strategy", strings.TrimSpace(strategy)))
	m.queries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.queryFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordSearchTruncated counts searches that hit a branch ceiling.
func (m *Metrics) RecordSearchTruncated(ctx context.Context, branch string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("branch", strings.TrimSpace(branch)))
	m.searchTruncated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStaleDiscarded counts session results dropped by last-request-wins.
func (m *Metrics) RecordStaleDiscarded(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleDiscarded.Add(ctx, 1)
}

// RecordBulkOperation counts a bulk operation and the rows it touched.
func (m *Metrics) RecordBulkOperation(ctx context.Context, operation, outcome string, rows int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.bulkOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
	if rows > 0 {
		m.bulkRowsAffected.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"method":      {},
	"status_code": {},
	"strategy":    {},
	"branch":      {},
	"operation":   {},
	"outcome":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
