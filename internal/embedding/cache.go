package embedding

import (
	"container/list"
	"sync"
)

// Cache is a bounded FIFO cache for embeddings keyed by content hash. It is
// an optimization only: a miss is always transparent to callers. Safe for
// concurrent use.
type Cache struct {
	capacity int
	entries  map[string]*list.Element
	fifo     *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewCache creates a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		fifo:     list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if elem, ok := c.entries[key]; ok {
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry once capacity
// is exceeded (insertion order, not recency).
func (c *Cache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.fifo.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = elem

	if c.fifo.Len() > c.capacity {
		oldest := c.fifo.Back()
		if oldest != nil {
			c.fifo.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fifo.Len()
}
