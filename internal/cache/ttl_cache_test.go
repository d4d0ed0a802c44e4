package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCacheGetOrSetKeepsLiveValue(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, *int](func() time.Time { return now })

	calls := 0
	create := func() *int {
		calls++
		v := calls
		return &v
	}

	first := c.GetOrSet("k", time.Minute, create)
	second := c.GetOrSet("k", time.Minute, create)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	third := c.GetOrSet("k", time.Minute, create)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, calls)
}

func TestTTLCacheSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](func() time.Time { return now })
	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Hour)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}
