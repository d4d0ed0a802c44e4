package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("strategy", "search"),
		attribute.String("account_id", "456"),
		attribute.String("outcome", "refused"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("strategy"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordQuery(ctx, "field", time.Millisecond, errors.New("boom"))
	m.RecordSearchTruncated(ctx, "members")
	m.RecordStaleDiscarded(ctx)
	m.RecordBulkOperation(ctx, "delete", "refused", 0)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "tutorly"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordQuery(context.Background(), "aggregate", 5*time.Millisecond, nil)
	m.RecordBulkOperation(context.Background(), "update_status", "partial", 3)
}

func TestStatusClassKeepsDirectoryOutcomes(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "207", statusClass(207))
	assert.Equal(t, "409", statusClass(409))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "503", statusClass(503))
	assert.Equal(t, "unmatched", routeLabel(""))
}
