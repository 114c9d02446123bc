// Package cache provides a weighted LRU cache.
package cache

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrTooHeavy = errors.New("item weight exceeds cache budget")

// Cache is a weight bounded LRU cache. Inserting beyond the budget evicts the
// least recently used items.
type Cache[V any] interface {
	// GetWeight returns the current weight of the cache
	GetWeight() int

	// GetBudget returns the weight budget of the cache
	GetBudget() int

	// Insert adds or replaces the item under key
	Insert(key string, value V, weight int) error

	// Retrieve gets an item by key, marking it as recently used
	Retrieve(key string) (V, bool)

	// Remove drops the item under key, reporting whether it was present
	Remove(key string) bool

	// Clear removes all items from the cache
	Clear()
}

type cacheNode[V any] struct {
	next   *cacheNode[V]
	prev   *cacheNode[V]
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu     sync.Mutex
	head   *cacheNode[V]
	tail   *cacheNode[V]
	lookup map[string]*cacheNode[V]
	weight int
	budget int
}

// NewCache initializes and returns a new cache with a given weight budget.
func NewCache[V any](budget int) Cache[V] {
	return &cache[V]{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		lookup: make(map[string]*cacheNode[V]),
		budget: budget,
	}
}

func (c *cache[V]) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.weight
}

func (c *cache[V]) GetBudget() int {
	return c.budget
}

func (c *cache[V]) Insert(key string, value V, weight int) error {
	if weight > c.budget {
		return ErrTooHeavy
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.lookup[key]; ok {
		c.unlink(existing)
		delete(c.lookup, key)
		c.weight -= existing.weight
	}

	node := &cacheNode[V]{
		key:    key,
		value:  value,
		weight: weight,
	}
	c.pushFront(node)
	c.lookup[key] = node
	c.weight += weight

	for c.weight > c.budget && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight

		c.log.WithFields(logrus.Fields{
			"key":          evicted.key,
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Debug("cache eviction")
	}

	return nil
}

func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.lookup[key]
	if !ok {
		var zero V
		return zero, false
	}

	if node != c.head {
		c.unlink(node)
		c.pushFront(node)
	}

	return node.value, true
}

func (c *cache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.lookup[key]
	if !ok {
		return false
	}

	c.unlink(node)
	delete(c.lookup, key)
	c.weight -= node.weight
	return true
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode[V])
	c.weight = 0
}

func (c *cache[V]) pushFront(node *cacheNode[V]) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *cache[V]) unlink(node *cacheNode[V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.next = nil
	node.prev = nil
}
