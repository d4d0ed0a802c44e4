package selection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tutorly/internal/cache"
)

var ErrNotFound = errors.New("selection_not_found")

// Store persists selections outside of any page or filter state.
type Store interface {
	Load(ctx context.Context, key string) ([]snowflake.ID, error)
	Save(ctx context.Context, key string, ids []snowflake.ID, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps selections in process.
type MemoryStore struct {
	cache *cache.TTLCache[string, []snowflake.ID]
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	return &MemoryStore{cache: cache.NewTTLCacheWithClock[string, []snowflake.ID](now)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]snowflake.ID, error) {
	ids, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]snowflake.ID, len(ids))
	copy(out, ids)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, ids []snowflake.ID, ttl time.Duration) error {
	stored := make([]snowflake.ID, len(ids))
	copy(stored, ids)
	m.cache.Set(key, stored, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Sweep drops expired selections.
func (m *MemoryStore) Sweep() int {
	return m.cache.Sweep()
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	lockTTL   = 5 * time.Second
	lockRetry = 20 * time.Millisecond
)

var errLockBusy = errors.New("selection is locked")

// RedisStore keeps each selection as a JSON array under one key and
// serializes writers across instances with a SETNX lock.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	release *redis.Script
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  "tutorly:selection:",
		release: redis.NewScript(lockReleaseScript),
	}
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]snowflake.ID, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ids []snowflake.ID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, ids []snowflake.ID, ttl time.Duration) error {
	if ids == nil {
		ids = []snowflake.ID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, raw, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Lock waits for the per-selection lock and returns its release func.
func (r *RedisStore) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + key + ":lock"
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = r.release.Run(context.WithoutCancel(ctx), r.client, []string{lockKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(errLockBusy, ctx.Err())
		case <-ticker.C:
		}
	}
}
