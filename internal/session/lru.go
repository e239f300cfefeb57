package session

import (
	"container/list"
	"sync"
	"time"
)

// lru is a size-bounded map whose entries expire ttl after their last access.
type lru[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	order   *list.List
	onEvict func(key string, data T)
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRU[T any](maxSize int, ttl time.Duration, now func() time.Time) *lru[T] {
	return &lru[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     now,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// get returns the value and extends its lifetime.
func (c *lru[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}

	e.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	return e.data, true
}

func (c *lru[T]) set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)
	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

func (c *lru[T]) delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.remove(elem)
	}
	return ok
}

func (c *lru[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
	if c.onEvict != nil {
		c.onEvict(e.key, e.data)
	}
}

// cleanExpired removes all expired entries and returns how many were dropped.
func (c *lru[T]) cleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.remove(elem)
	}
	return len(expired)
}

func (c *lru[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
