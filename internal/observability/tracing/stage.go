package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartStage opens a child span for one step of a directory query. The
// returned func records err, when set, and ends the span.
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, attribute.String("directory.stage", stage))
	ctx, span := Tracer("directory").Start(ctx, "directory."+stage, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(SafeError(err))
			span.SetStatus(codes.Error, stage+" failed")
		}
		span.End()
	}
}
