package services

import (
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CacheService is a small TTL cache used for public menu payloads and
// validate lookups. It is passed to its consumers explicitly so tests can
// inject their own instance and so the backing store can later be swapped for
// a distributed cache without touching callers.
type CacheService struct {
	store *gocache.Cache
}

const DefaultCacheTTL = 5 * time.Minute

func NewCacheService() *CacheService {
	return &CacheService{
		store: gocache.New(DefaultCacheTTL, 10*time.Minute),
	}
}

func (c *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c.store.Set(key, value, ttl)
}

func (c *CacheService) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *CacheService) Delete(key string) {
	c.store.Delete(key)
}

// DeletePattern removes every key matching a glob-style pattern, e.g.
// "menu:5:*" after a menu edit for restaurant 5.
func (c *CacheService) DeletePattern(pattern string) {
	re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$")
	if err != nil {
		return
	}
	for key := range c.store.Items() {
		if re.MatchString(key) {
			c.store.Delete(key)
		}
	}
}

func (c *CacheService) Clear() {
	c.store.Flush()
}

// Len returns the number of non-expired entries.
func (c *CacheService) Len() int {
	return c.store.ItemCount()
}
