package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestStartStageRecordsFailure(t *testing.T) {
	recorder := useRecorder(t)

	_, finish := StartStage(context.Background(), "aggregate", attribute.Int("accounts", 3))
	finish(errors.New("connection reset by 10.0.0.7"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "directory.aggregate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	for _, attr := range spans[0].Events()[0].Attributes {
		assert.NotContains(t, attr.Value.Emit(), "10.0.0.7")
	}
}

func TestStartStageSuccess(t *testing.T) {
	recorder := useRecorder(t)

	_, finish := StartStage(context.Background(), "search.members")
	finish(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("directory.stage", "search.members"))
}
