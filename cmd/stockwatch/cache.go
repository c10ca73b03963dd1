package main

import (
	"sync"
	"time"
)

// MentionTTL is how long a resolved mention is reused before the user is
// fetched again.
const MentionTTL = time.Hour

type cacheItem struct {
	value     string
	expireAt  time.Time
	createdAt time.Time
}

// Cache is a small in-memory string cache with expiration. Expired entries
// are dropped lazily on access.
type Cache struct {
	items      map[string]*cacheItem
	mutex      sync.Mutex
	maxItems   int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewCache creates a cache holding at most maxItems entries (0 is unbounded).
func NewCache(defaultTTL time.Duration, maxItems int) *Cache {
	return &Cache{
		items:      make(map[string]*cacheItem),
		maxItems:   maxItems,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.items[key] = &cacheItem{
		value:     value,
		expireAt:  now.Add(c.defaultTTL),
		createdAt: now,
	}
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictOldest()
	}
}

// Get returns the value for key if it has not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", false
	}
	if c.now().After(item.expireAt) {
		delete(c.items, key)
		return "", false
	}
	return item.value, true
}

func (c *Cache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, item := range c.items {
		if oldestKey == "" || item.createdAt.Before(oldest) {
			oldestKey, oldest = key, item.createdAt
		}
	}
	delete(c.items, oldestKey)
}
