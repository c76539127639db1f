package store

import (
	"sync"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// RasterCache is a read-through, thread-safe LRU cache over ReadRaster.
// Per-day workers all pull the same baseline and recorded-rainfall layers;
// caching keeps those shared reads to one file open apiece while bounding
// memory on long forecast runs.
type RasterCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	head       *cacheEntry // most recently used
	tail       *cacheEntry // least recently used
}

type cacheEntry struct {
	key   string
	value *domain.Raster
	prev  *cacheEntry
	next  *cacheEntry
}

// NewRasterCache creates a cache holding at most maxEntries rasters.
func NewRasterCache(maxEntries int) *RasterCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &RasterCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

// Get returns the raster at path, reading and caching it on first use.
// Cached rasters are shared: callers must not mutate the result.
func (c *RasterCache) Get(path string) (*domain.Raster, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok {
		c.moveToFront(e)
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	r, err := ReadRaster(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok { // raced with another reader
		c.moveToFront(e)
		return e.value, nil
	}
	e := &cacheEntry{key: path, value: r}
	c.entries[path] = e
	c.addToFront(e)
	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return r, nil
}

// Invalidate drops a path from the cache, for reruns that overwrite
// artifacts in place.
func (c *RasterCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		c.remove(e)
		delete(c.entries, path)
	}
}

func (c *RasterCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *RasterCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *RasterCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *RasterCache) evictTail() {
	if c.tail == nil {
		return
	}
	evicted := c.tail
	c.remove(evicted)
	delete(c.entries, evicted.key)
}
