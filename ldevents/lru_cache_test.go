package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLruCacheReturnsFalseForNeverSeenValue(t *testing.T) {
	cache := newLruCache(10)
	assert.False(t, cache.add("a"))
}

func TestLruCacheReturnsTrueForAlreadySeenValue(t *testing.T) {
	cache := newLruCache(10)
	cache.add("a")
	assert.True(t, cache.add("a"))
}

func TestLruCacheEvictsLeastRecentValue(t *testing.T) {
	cache := newLruCache(2)
	cache.add("a")
	cache.add("b")
	cache.add("c") // evicts "a"
	assert.False(t, cache.add("a"))
}

func TestLruCacheMarksValueAsRecentlyUsedOnHit(t *testing.T) {
	cache := newLruCache(2)
	cache.add("a")
	cache.add("b")
	cache.add("a") // "b" is now the least recent
	cache.add("c") // evicts "b"
	assert.True(t, cache.add("a"))
	assert.False(t, cache.add("b"))
}

func TestLruCacheWithZeroOrNegativeCapacityNeverRemembersValues(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		cache := newLruCache(capacity)
		assert.False(t, cache.add("a"))
		assert.False(t, cache.add("a"))
	}
}

func TestLruCacheClearForgetsEverything(t *testing.T) {
	cache := newLruCache(10)
	cache.add("a")
	cache.clear()
	assert.False(t, cache.add("a"))
}
