// Package sync provides keyed locking primitives.
package sync

import (
	"fmt"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring[int]
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
// At least one stripe is always allocated.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	entries := make(map[string]int, stripes)
	for i := 0; i < int(stripes); i++ {
		entries[fmt.Sprintf("lock%d", i)] = i
	}

	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(entries, hashEntriesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.hashRing.shard(key)]
}

// Lock acquires the write lock for key and returns its release func
func (l *StripedLock) Lock(key string) func() {
	mu := l.Get([]byte(key))
	mu.Lock()
	return mu.Unlock
}

// RLock acquires the read lock for key and returns its release func
func (l *StripedLock) RLock(key string) func() {
	mu := l.Get([]byte(key))
	mu.RLock()
	return mu.RUnlock
}

// Stripes returns the number of locks backing the key space
func (l *StripedLock) Stripes() int {
	return len(l.locks)
}
