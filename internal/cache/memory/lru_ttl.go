// Package memory provides the in-memory artifact store: a threadsafe LRU
// cache with per-entry TTL and an optional total-bytes cap.
package memory

import (
	"container/list"
	"sync"
	"time"
)

type record[K comparable, V any] struct {
	key       K
	value     V
	size      int
	expiresAt time.Time
}

// LRUTTL evicts least-recently-used entries once either the entry count or
// the byte cap is exceeded; expired entries are dropped lazily on access.
// All methods are safe on a nil receiver, which disables caching.
type LRUTTL[K comparable, V any] struct {
	mu      sync.Mutex
	order   *list.List
	byKey   map[K]*list.Element
	maxKeys int
	maxSize int
	size    int
	ttl     time.Duration
}

func New[K comparable, V any](maxKeys, maxSize int, ttl time.Duration) *LRUTTL[K, V] {
	if maxKeys <= 0 {
		maxKeys = 1
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LRUTTL[K, V]{
		order:   list.New(),
		byKey:   make(map[K]*list.Element),
		maxKeys: maxKeys,
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *LRUTTL[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	rec := ele.Value.(*record[K, V])
	if time.Now().After(rec.expiresAt) {
		c.drop(ele)
		return zero, false
	}
	c.order.MoveToFront(ele)
	return rec.value, true
}

func (c *LRUTTL[K, V]) Set(key K, value V, sizeBytes int) {
	if c == nil {
		return
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.byKey[key]; ok {
		rec := ele.Value.(*record[K, V])
		c.size += sizeBytes - rec.size
		rec.value = value
		rec.size = sizeBytes
		rec.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(ele)
	} else {
		rec := &record[K, V]{key: key, value: value, size: sizeBytes, expiresAt: time.Now().Add(c.ttl)}
		c.byKey[key] = c.order.PushFront(rec)
		c.size += sizeBytes
	}
	for c.order.Len() > 0 && (c.order.Len() > c.maxKeys || (c.maxSize > 0 && c.size > c.maxSize)) {
		c.drop(c.order.Back())
	}
}

func (c *LRUTTL[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.byKey[key]; ok {
		c.drop(ele)
	}
}

// Len returns the number of entries still held, expired ones included until
// they are touched.
func (c *LRUTTL[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUTTL[K, V]) drop(ele *list.Element) {
	if ele == nil {
		return
	}
	c.order.Remove(ele)
	rec := ele.Value.(*record[K, V])
	delete(c.byKey, rec.key)
	c.size -= rec.size
	if c.size < 0 {
		c.size = 0
	}
}
