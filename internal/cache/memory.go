package cache

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// ContentCache keeps artifact bytes in memory with LRU eviction. Every entry
// carries a stamp of the file it was read from; a lookup with a different
// stamp is a miss and drops the entry.
type ContentCache struct {
	entries     map[string]*contentEntry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	// LRU list with sentinel head and tail
	head *contentEntry
	tail *contentEntry

	hits      int64
	misses    int64
	sets      int64
	evictions int64
}

type contentEntry struct {
	key   string
	stamp string
	value []byte
	size  int64
	prev  *contentEntry
	next  *contentEntry
}

// Stats is a snapshot of ContentCache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Size      int64 `json:"size"`
	MaxSize   int64 `json:"max_size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
}

// HitRate returns hits over lookups, between 0 and 1.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewContentCache creates a cache holding at most maxSize bytes. A size of
// zero or less disables caching.
func NewContentCache(maxSize int64) *ContentCache {
	c := &ContentCache{
		entries: make(map[string]*contentEntry),
		maxSize: maxSize,
		head:    &contentEntry{},
		tail:    &contentEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value stored for key if it was stored under stamp.
func (c *ContentCache) Get(key, stamp string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if entry.stamp != stamp {
		c.drop(entry)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// Set stores value for key under stamp. Values larger than the whole cache
// are not stored.
func (c *ContentCache) Set(key, stamp string, value []byte) {
	size := int64(len(value))
	if size > c.maxSize {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.drop(existing)
	}
	c.evictIfNeeded(size)

	entry := &contentEntry{key: key, stamp: stamp, value: value, size: size}
	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
	atomic.AddInt64(&c.sets, 1)
}

// Invalidate removes key and reports whether it was present.
func (c *ContentCache) Invalidate(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if ok {
		c.drop(entry)
	}
	return ok
}

// Clear drops every entry and resets the counters.
func (c *ContentCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*contentEntry)
	c.currentSize = 0
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.sets, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns a snapshot of the counters.
func (c *ContentCache) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return Stats{
		Entries:   len(c.entries),
		Size:      c.currentSize,
		MaxSize:   c.maxSize,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// Load returns the contents of the file at path, served from memory while
// the file's modification time and size are unchanged.
func (c *ContentCache) Load(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	stamp := fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())

	if data, ok := c.Get(path, stamp); ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.Set(path, stamp, data)
	return data, nil
}

func (c *ContentCache) evictIfNeeded(newSize int64) {
	for c.currentSize+newSize > c.maxSize && c.tail.prev != c.head {
		c.drop(c.tail.prev)
		atomic.AddInt64(&c.evictions, 1)
	}
}

func (c *ContentCache) drop(entry *contentEntry) {
	c.removeFromList(entry)
	delete(c.entries, entry.key)
	c.currentSize -= entry.size
}

func (c *ContentCache) addToFront(entry *contentEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *ContentCache) removeFromList(entry *contentEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *ContentCache) moveToFront(entry *contentEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
