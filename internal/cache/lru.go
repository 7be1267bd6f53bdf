package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
)

// DefaultCapacity bounds the hot cache. Fifty documents covers a typical
// editing session's working set while keeping worst-case memory in the tens
// of megabytes.
const DefaultCapacity = 50

// key is the content-addressed cache key. Keying on the hash, not just the
// uri, makes stale hits impossible: a content change simply misses.
type key struct {
	uri  string
	hash Hash
}

// lruEntry is the list payload.
type lruEntry struct {
	key          key
	doc          *Document
	lastAccessed time.Time
}

// DocumentCache memoizes parsed-and-indexed documents with LRU eviction.
// A single read-preferring lock protects the map; returned documents are
// pointer copies of shared immutable state.
type DocumentCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[key]*list.Element
	byURI    map[string]*list.Element
	order    *list.List // front = most recently used

	// Atomic counters, readable without the lock.
	queries   int64
	hits      int64
	misses    int64
	evictions int64
}

// NewDocumentCache creates a cache bounded to capacity entries; zero or
// negative means DefaultCapacity.
func NewDocumentCache(capacity int) *DocumentCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &DocumentCache{
		capacity: capacity,
		entries:  make(map[key]*list.Element),
		byURI:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached document for (uri, hash), refreshing its recency.
// A hit always carries the queried content hash.
func (c *DocumentCache) Get(uri string, hash Hash) (*Document, bool) {
	atomic.AddInt64(&c.queries, 1)

	c.mu.RLock()
	elem, ok := c.entries[key{uri: uri, hash: hash}]
	c.mu.RUnlock()
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	// Re-check under the write lock: the entry may have been evicted.
	elem, ok = c.entries[key{uri: uri, hash: hash}]
	if !ok {
		c.mu.Unlock()
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	entry := elem.Value.(*lruEntry)
	entry.lastAccessed = time.Now()
	doc := entry.doc
	c.mu.Unlock()

	atomic.AddInt64(&c.hits, 1)
	return doc, true
}

// GetByURI returns the most recent entry for a uri regardless of hash.
// Used to serve queries against the last good index while an edit is being
// re-indexed; it does not count as a content-addressed hit.
func (c *DocumentCache) GetByURI(uri string) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	elem, ok := c.byURI[uri]
	if !ok {
		return nil, false
	}
	return elem.Value.(*lruEntry).doc, true
}

// Insert stores a document under (uri, doc.ContentHash), evicting the least
// recently used entry when over capacity. A newer entry for the same uri
// replaces the older one.
func (c *DocumentCache) Insert(doc *Document) {
	k := key{uri: doc.URI, hash: doc.ContentHash}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[k]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*lruEntry)
		entry.doc = doc
		entry.lastAccessed = time.Now()
		return
	}

	// Drop the uri's previous content version, if any.
	if prev, ok := c.byURI[doc.URI]; ok {
		c.removeElement(prev)
	}

	elem := c.order.PushFront(&lruEntry{key: k, doc: doc, lastAccessed: time.Now()})
	c.entries[k] = elem
	c.byURI[doc.URI] = elem

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		atomic.AddInt64(&c.evictions, 1)
		debug.LogCache("evicted %s\n", oldest.Value.(*lruEntry).key.uri)
	}
}

// Remove drops the entry for a uri regardless of hash. Used on file
// deletion; plain didClose retains the entry until LRU pressure.
func (c *DocumentCache) Remove(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byURI[uri]; ok {
		c.removeElement(elem)
	}
}

// Clear drops every entry. Statistics are retained.
func (c *DocumentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[key]*list.Element)
	c.byURI = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of cached documents.
func (c *DocumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Documents snapshots every cached document, most recently used first.
func (c *DocumentCache) Documents() []*Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Document, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*lruEntry).doc)
	}
	return out
}

// removeElement must run under the write lock.
func (c *DocumentCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*lruEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	if cur, ok := c.byURI[entry.key.uri]; ok && cur == elem {
		delete(c.byURI, entry.key.uri)
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Queries   int64
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	Capacity  int
}

// HitRate returns hits over queries, zero when idle.
func (s Stats) HitRate() float64 {
	if s.Queries == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Queries)
}

// Stats returns current cache statistics.
func (c *DocumentCache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Queries:   atomic.LoadInt64(&c.queries),
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Entries:   entries,
		Capacity:  c.capacity,
	}
}
