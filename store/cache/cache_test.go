package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(maxItems int) *Cache {
	return New(Config{
		DefaultTTL: time.Minute,
		MaxItems:   maxItems,
	})
}

func TestGetSet(t *testing.T) {
	c := newTestCache(10)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := newTestCache(10)
	defer c.Close()

	c.SetWithTTL("short", "v", -time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok, "an expired entry must not be served")

	c.SetWithTTL("long", "v", time.Hour)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestEviction(t *testing.T) {
	c := newTestCache(3)
	defer c.Close()

	// The entry closest to expiry is the eviction victim.
	c.SetWithTTL("victim", "v", time.Second)
	for i := 0; i < 2; i++ {
		c.SetWithTTL(fmt.Sprintf("k%d", i), "v", time.Hour)
	}

	c.SetWithTTL("new", "v", time.Hour)

	_, ok := c.Get("victim")
	assert.False(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
	_, ok = c.Get("k0")
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := newTestCache(2)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = c.Get("b")
	assert.True(t, ok)
}
