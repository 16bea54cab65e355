package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGetDelete(t *testing.T) {
	cache := NewCacheService()

	cache.Set("menu:1", "payload", time.Minute)
	v, ok := cache.Get("menu:1")
	assert.True(t, ok)
	assert.Equal(t, "payload", v)

	cache.Delete("menu:1")
	_, ok = cache.Get("menu:1")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCacheService()

	cache.Set("short", 1, 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	_, ok := cache.Get("short")
	assert.False(t, ok)
}

func TestCacheDeletePattern(t *testing.T) {
	cache := NewCacheService()

	cache.Set("menu:1:list", "a", time.Minute)
	cache.Set("menu:1:item:2", "b", time.Minute)
	cache.Set("menu:2:list", "c", time.Minute)

	cache.DeletePattern("menu:1:*")

	_, ok := cache.Get("menu:1:list")
	assert.False(t, ok)
	_, ok = cache.Get("menu:1:item:2")
	assert.False(t, ok)
	_, ok = cache.Get("menu:2:list")
	assert.True(t, ok)
}

func TestCacheClear(t *testing.T) {
	cache := NewCacheService()
	cache.Set("a", 1, time.Minute)
	cache.Set("b", 2, time.Minute)
	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
