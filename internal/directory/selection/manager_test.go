package selection

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/config"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newManager(t *testing.T) (*Manager, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.DefaultDirectoryConfig()
	cfg.SelectionTTL = time.Hour
	return NewManager(Params{
		Store:  NewMemoryStore(clk.Now),
		Config: config.NewDirectoryConfigHolder(cfg),
		Log:    zap.NewNop(),
	}), clk
}

func TestManagerSelectionLifecycle(t *testing.T) {
	m, _ := newManager(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	key, ids, err := m.Create(ctx, []snowflake.ID{4, 2})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{4, 2}, ids)

	ids, err = m.Update(ctx, key, []snowflake.ID{8, 4}, []snowflake.ID{2})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{4, 8}, ids)

	selected, ids, err := m.Toggle(ctx, key, 2)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, []snowflake.ID{4, 8, 2}, ids)

	got, err := m.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	require.NoError(t, m.Clear(ctx, key))
	_, err = m.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerScopesByOrganization(t *testing.T) {
	m, _ := newManager(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)
	other := orgcontext.WithOrgID(context.Background(), 11)

	key, _, err := m.Create(ctx, []snowflake.ID{1})
	require.NoError(t, err)

	_, err = m.Get(other, key)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Get(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = m.Get(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestManagerSelectionExpires(t *testing.T) {
	m, clk := newManager(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	key, _, err := m.Create(ctx, []snowflake.ID{1})
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)
	_, _, err = m.Toggle(ctx, key, 2)
	require.NoError(t, err)

	clk.Advance(45 * time.Minute)
	ids, err := m.Get(ctx, key)
	require.NoError(t, err, "writes refresh the ttl")
	assert.Equal(t, []snowflake.ID{1, 2}, ids)

	clk.Advance(2 * time.Hour)
	_, err = m.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
