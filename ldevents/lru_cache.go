package ldevents

import "container/list"

// A bounded set of recently seen user keys, with LRU eviction. This is deliberately not
// thread-safe; it is owned by the dispatcher goroutine.
type lruCache struct {
	values   map[string]*list.Element
	lruList  *list.List
	capacity int
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		values:   make(map[string]*list.Element),
		lruList:  list.New(),
		capacity: capacity,
	}
}

func (c *lruCache) clear() {
	c.values = make(map[string]*list.Element)
	c.lruList.Init()
}

// Adds a value to the cache, evicting the least recently seen value if necessary, and
// returns true if the value was already present (in which case it is now marked as most
// recently seen).
func (c *lruCache) add(value string) bool {
	if c.capacity <= 0 {
		return false
	}
	if e, ok := c.values[value]; ok {
		c.lruList.MoveToFront(e)
		return true
	}
	for len(c.values) >= c.capacity {
		oldest := c.lruList.Back()
		delete(c.values, oldest.Value.(string))
		c.lruList.Remove(oldest)
	}
	c.values[value] = c.lruList.PushFront(value)
	return false
}
