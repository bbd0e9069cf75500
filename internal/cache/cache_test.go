package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestCacheTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	c := New[string](clk, time.Minute)

	c.Set("ladder", "top100")

	got, ok := c.Get("ladder")
	require.True(t, ok)
	assert.Equal(t, "top100", got)

	clk.now = clk.now.Add(59 * time.Second)
	_, ok = c.Get("ladder")
	assert.True(t, ok, "entry still fresh just before the TTL")

	clk.now = clk.now.Add(2 * time.Second)
	_, ok = c.Get("ladder")
	assert.False(t, ok, "entry expired past the TTL")
}

func TestCacheInvalidate(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	c := New[int](clk, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCacheMiss(t *testing.T) {
	c := New[int](&fakeClock{now: time.Unix(1000, 0)}, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}
