package selection

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCopiesAndExpires(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	ids := []snowflake.ID{1, 2}
	require.NoError(t, store.Save(ctx, "k", ids, time.Minute))
	ids[0] = 9

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{1, 2}, got)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Sweep())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	_, err := store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, key, []snowflake.ID{3, 1}, time.Minute))
	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{3, 1}, got)

	unlock, err := store.Lock(ctx, key)
	require.NoError(t, err)
	busyCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = store.Lock(busyCtx, key)
	assert.ErrorIs(t, err, errLockBusy)
	unlock()

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
