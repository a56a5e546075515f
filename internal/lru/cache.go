// Package lru provides a bounded, least-recently-used cache of entries
// that carry their own identifier.
package lru

import (
	"container/list"
	"sync"
)

type CacheIdentifier interface {
	Identifier() string
}

type listEntry[T CacheIdentifier] struct {
	id    string
	entry T
}

// Cache is a thread-safe cache of generic entries. Lookups move the entry
// to the front; adding beyond capacity evicts from the back.
type Cache[T CacheIdentifier] struct {
	capacity int
	onEvict  func(T)

	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element
}

type Option[T CacheIdentifier] func(*Cache[T])

// WithOnEvict registers fn to be called, outside the cache lock, for every
// entry pushed out by capacity or replaced by an entry with the same id.
func WithOnEvict[T CacheIdentifier](fn func(T)) Option[T] {
	return func(c *Cache[T]) {
		c.onEvict = fn
	}
}

func NewCache[T CacheIdentifier](capacity int, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		capacity: max(capacity, 1),
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[T]) addUnsafe(entry T) (evicted []T) {
	id := entry.Identifier()

	if el, ok := c.index[id]; ok {
		evicted = append(evicted, c.removeUnsafe(el))
	}
	for c.order.Len() >= c.capacity {
		evicted = append(evicted, c.removeUnsafe(c.order.Back()))
	}

	c.index[id] = c.order.PushFront(&listEntry[T]{id: id, entry: entry})
	return evicted
}

func (c *Cache[T]) removeUnsafe(el *list.Element) T {
	e := c.order.Remove(el).(*listEntry[T])
	delete(c.index, e.id)
	return e.entry
}

func (c *Cache[T]) evicted(entries []T) {
	if c.onEvict == nil {
		return
	}
	for _, e := range entries {
		c.onEvict(e)
	}
}

func (c *Cache[T]) Add(entry T) {
	c.mu.Lock()
	evicted := c.addUnsafe(entry)
	c.mu.Unlock()

	c.evicted(evicted)
}

// CreateAndAdd adds the entry returned by generate unless it fails.
func (c *Cache[T]) CreateAndAdd(generate func() (T, error)) (T, error) {
	entry, err := generate()
	if err != nil {
		return entry, err
	}
	c.Add(entry)
	return entry, nil
}

func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[T]) GetByID(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*listEntry[T]).entry, true
}

// DeleteByID removes the entry without calling the eviction callback.
func (c *Cache[T]) DeleteByID(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.removeUnsafe(el), true
}

func (c *Cache[T]) Newest() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order.Len() == 0 {
		var zero T
		return zero, false
	}
	return c.order.Front().Value.(*listEntry[T]).entry, true
}

// List returns entries from the least to the most recently used.
func (c *Cache[T]) List() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]T, 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		entries = append(entries, el.Value.(*listEntry[T]).entry)
	}
	return entries
}

// Purge removes every entry, calling the eviction callback for each.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	var evicted []T
	for c.order.Len() > 0 {
		evicted = append(evicted, c.removeUnsafe(c.order.Back()))
	}
	c.mu.Unlock()

	c.evicted(evicted)
}
