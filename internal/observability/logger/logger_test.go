package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/tutorly/internal/observability/context"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	require.Error(t, err)
}

func TestWithContextAddsOrgAndOperator(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := orgcontext.WithOrgID(context.Background(), 900)
	ctx = obscontext.WithOperator(ctx, "op-3")

	WithContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "900", fields["org_id"])
	assert.Equal(t, "op-3", fields["operator_id"])
	assert.NotContains(t, fields, "trace_id")
}
