// Package cache implements the Analysis Cache (C9): four independent
// TTL caches, one per result kind, each behind its own lock with
// hit/miss counters.
package cache

import (
	"sync"
	"time"
)

type Kind string

const (
	KindDeviceList   Kind = "device_list"
	KindDeviceData   Kind = "device_data"
	KindAIAnalysis   Kind = "ai_analysis"
	KindSystemStatus Kind = "system_status"
)

type entry struct {
	value     any
	expiresAt time.Time
}

type perKindCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	hits    int64
	misses  int64
}

func newPerKindCache(ttl time.Duration) *perKindCache {
	return &perKindCache{ttl: ttl, entries: make(map[string]entry)}
}

// TTLConfig carries the per-kind TTL in seconds, matching
// config.CacheTTLConfig's field shape.
type TTLConfig struct {
	DeviceListSeconds   int
	DeviceDataSeconds   int
	AIAnalysisSeconds   int
	SystemStatusSeconds int
}

// Cache is the Analysis Cache. Reads and writes across kinds are
// independent; nothing is shared but the (injectable) clock.
type Cache struct {
	kinds map[Kind]*perKindCache
	now   func() time.Time
}

func New(ttl TTLConfig) *Cache {
	return &Cache{
		kinds: map[Kind]*perKindCache{
			KindDeviceList:   newPerKindCache(time.Duration(ttl.DeviceListSeconds) * time.Second),
			KindDeviceData:   newPerKindCache(time.Duration(ttl.DeviceDataSeconds) * time.Second),
			KindAIAnalysis:   newPerKindCache(time.Duration(ttl.AIAnalysisSeconds) * time.Second),
			KindSystemStatus: newPerKindCache(time.Duration(ttl.SystemStatusSeconds) * time.Second),
		},
		now: time.Now,
	}
}

func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns (value, true) on a live hit. A miss — absent or
// expired — never triggers recomputation; it is the caller's job to
// recompute and Set.
func (c *Cache) Get(kind Kind, key string) (any, bool) {
	k := c.kinds[kind]
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		k.misses++
		return nil, false
	}
	k.hits++
	return e.value, true
}

func (c *Cache) Set(kind Kind, key string, value any) {
	k := c.kinds[kind]
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = entry{value: value, expiresAt: c.now().Add(k.ttl)}
}

// Invalidate clears deviceID's entries from the device-data and
// ai-analysis kinds; device_list and system_status are not
// device-scoped.
func (c *Cache) Invalidate(deviceID string) {
	for _, kind := range []Kind{KindDeviceData, KindAIAnalysis} {
		k := c.kinds[kind]
		k.mu.Lock()
		for key := range k.entries {
			if key == deviceID || hasDevicePrefix(key, deviceID) {
				delete(k.entries, key)
			}
		}
		k.mu.Unlock()
	}
}

func hasDevicePrefix(key, deviceID string) bool {
	return len(key) > len(deviceID) && key[:len(deviceID)] == deviceID && key[len(deviceID)] == ':'
}

// Stats returns the hit/miss counters for one kind.
func (c *Cache) Stats(kind Kind) (hits, misses int64) {
	k := c.kinds[kind]
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.hits, k.misses
}
