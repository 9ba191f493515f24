package search

import (
	"container/list"
	"sync"
)

// TagCache is an LRU cache of trigram -> tag id lookups, including negative results.
// It is only valid while the index is unchanged; Clear it when the database changes.
type TagCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
	hits     uint64
	misses   uint64
}

type tagEntry struct {
	tag   string
	id    int64
	found bool
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// NewTagCache creates a cache holding at most capacity trigrams.
func NewTagCache(capacity int) *TagCache {
	return &TagCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached lookup for tag. cached is false on a miss; found is false when the
// trigram is known to be absent from the index.
func (c *TagCache) Get(tag string) (id int64, found, cached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[tag]
	if !ok {
		c.misses++
		return 0, false, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	e := elem.Value.(*tagEntry)
	return e.id, e.found, true
}

// Set stores a lookup result, evicting the least recently used entry if at capacity.
func (c *TagCache) Set(tag string, id int64, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[tag]; ok {
		c.lru.MoveToFront(elem)
		e := elem.Value.(*tagEntry)
		e.id, e.found = id, found
		return
	}

	elem := c.lru.PushFront(&tagEntry{tag: tag, id: id, found: found})
	c.cache[tag] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*tagEntry).tag)
		}
	}
}

// Clear drops every entry and resets the counters.
func (c *TagCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*list.Element)
	c.lru.Init()
	c.hits, c.misses = 0, 0
}

// Stats returns the current size and hit/miss counters.
func (c *TagCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: c.lru.Len(), Hits: c.hits, Misses: c.misses}
}
