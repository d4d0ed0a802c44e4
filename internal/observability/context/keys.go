package context

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	operatorKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithOperator records the admin operator issuing the request. Sessions and
// selections are keyed per operator by the client, so this is log-only.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return withString(ctx, operatorKey, operatorID)
}

func OperatorFromContext(ctx context.Context) string {
	return stringValue(ctx, operatorKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
