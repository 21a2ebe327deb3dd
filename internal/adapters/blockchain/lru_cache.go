package blockchain

import (
	"container/list"
	"sync"
)

// BoundedLRUCache is a thread-safe bounded LRU cache with generic key-value
// types. Used for mint metadata, which is immutable but unbounded in count.
type BoundedLRUCache[K comparable, V any] struct {
	mu      sync.RWMutex
	cache   map[K]*list.Element
	lru     *list.List
	maxSize int
	zeroVal V
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func NewBoundedLRUCache[K comparable, V any](maxSize int) *BoundedLRUCache[K, V] {
	return &BoundedLRUCache[K, V]{
		cache:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get retrieves a value and promotes it to most recently used.
func (c *BoundedLRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	_, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok {
		return c.zeroVal, false
	}

	c.mu.Lock()
	// Re-check after acquiring write lock
	elem, ok := c.cache[key]
	if ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		c.mu.Unlock()
		return entry.value, true
	}
	c.mu.Unlock()
	return c.zeroVal, false
}

// Set adds or updates a value, evicting the least recently used entry when
// at capacity.
func (c *BoundedLRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		return
	}

	for len(c.cache) >= c.maxSize {
		c.evictLRU()
	}

	entry := &lruEntry[K, V]{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem
}

// evictLRU removes the least recently used entry. Must be called with mu held.
func (c *BoundedLRUCache[K, V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry[K, V])
	c.lru.Remove(back)
	delete(c.cache, entry.key)
}

// Size returns the current entry count.
func (c *BoundedLRUCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
