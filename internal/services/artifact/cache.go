package artifact

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/happy2099/zap-mono/internal/domain"
)

const numShards = 16

// Class partitions cache entries by lifetime: reusable instruction templates
// outlive pre-signed transactions, which die with their blockhash.
type Class string

const (
	ClassTemplate Class = "template"
	ClassSignedTx Class = "signed_tx"
)

type cacheEntry struct {
	value     *domain.TradeReadyEntry
	class     Class
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// ShardedCache is a sharded TTL map for trade-ready entries. Sharding keeps
// lock contention low when the detector, executor and HTTP surface hit the
// cache concurrently. Expiry is checked on read; a background sweep reclaims
// entries nobody reads again.
type ShardedCache struct {
	shards [numShards]cacheShard
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func NewShardedCache() *ShardedCache {
	c := &ShardedCache{}
	for i := 0; i < numShards; i++ {
		c.shards[i].entries = make(map[string]*cacheEntry)
	}
	return c
}

func (c *ShardedCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &c.shards[h.Sum32()%numShards]
}

// Get returns the live entry for key, treating an expired entry as absent.
func (c *ShardedCache) Get(key string, now time.Time) (*domain.TradeReadyEntry, Class, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	entry, ok := shard.entries[key]
	shard.mu.RUnlock()

	if !ok || entry.expired(now) {
		return nil, "", false
	}
	return entry.value, entry.class, true
}

// Set stores an entry unconditionally, replacing any previous value.
func (c *ShardedCache) Set(key string, value *domain.TradeReadyEntry, class Class, expiresAt time.Time) {
	shard := c.getShard(key)
	shard.mu.Lock()
	shard.entries[key] = &cacheEntry{value: value, class: class, expiresAt: expiresAt}
	shard.mu.Unlock()
}

// SetIfAbsent stores the entry only when no live entry exists for key, which
// makes racing producers converge on one winner. Returns true when stored.
func (c *ShardedCache) SetIfAbsent(key string, value *domain.TradeReadyEntry, class Class, expiresAt time.Time, now time.Time) bool {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.entries[key]; ok && !existing.expired(now) {
		return false
	}
	shard.entries[key] = &cacheEntry{value: value, class: class, expiresAt: expiresAt}
	return true
}

// Delete removes the entry and reports whether one was present (live or not).
func (c *ShardedCache) Delete(key string) bool {
	shard := c.getShard(key)
	shard.mu.Lock()
	_, ok := shard.entries[key]
	delete(shard.entries, key)
	shard.mu.Unlock()
	return ok
}

// Len counts live entries across all shards.
func (c *ShardedCache) Len(now time.Time) int {
	total := 0
	for i := 0; i < numShards; i++ {
		c.shards[i].mu.RLock()
		for _, entry := range c.shards[i].entries {
			if !entry.expired(now) {
				total++
			}
		}
		c.shards[i].mu.RUnlock()
	}
	return total
}

// Keys returns the keys of all live entries.
func (c *ShardedCache) Keys(now time.Time) []string {
	result := make([]string, 0, 64)
	for i := 0; i < numShards; i++ {
		c.shards[i].mu.RLock()
		for key, entry := range c.shards[i].entries {
			if !entry.expired(now) {
				result = append(result, key)
			}
		}
		c.shards[i].mu.RUnlock()
	}
	return result
}

// Range iterates live entries until f returns false.
func (c *ShardedCache) Range(now time.Time, f func(key string, value *domain.TradeReadyEntry, class Class) bool) {
	for i := 0; i < numShards; i++ {
		c.shards[i].mu.RLock()
		for key, entry := range c.shards[i].entries {
			if entry.expired(now) {
				continue
			}
			if !f(key, entry.value, entry.class) {
				c.shards[i].mu.RUnlock()
				return
			}
		}
		c.shards[i].mu.RUnlock()
	}
}

// Sweep removes expired entries and returns how many were evicted.
func (c *ShardedCache) Sweep(now time.Time) int {
	evicted := 0
	for i := 0; i < numShards; i++ {
		c.shards[i].mu.Lock()
		for key, entry := range c.shards[i].entries {
			if entry.expired(now) {
				delete(c.shards[i].entries, key)
				evicted++
			}
		}
		c.shards[i].mu.Unlock()
	}
	return evicted
}
