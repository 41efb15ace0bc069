package process

import (
	"fmt"
	"sync"
)

// intervalKey identifies one closed-form step. Both components compare by
// exact float equality.
type intervalKey struct {
	t0, dt float64
}

// tableEntry pairs a cached value with the provider version it was
// computed under. Entries are immutable once inserted.
type tableEntry[V any] struct {
	val     V
	version uint64
}

// table is a concurrency-safe memo table with generation guarding. Within
// one provider generation the first writer wins, so redundant concurrent
// computations of the same key converge to a single stored value and torn
// entries are never observable. Entries filled under an older generation
// are dropped on access.
type table[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]tableEntry[V]
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{m: make(map[K]tableEntry[V])}
}

// get returns the value cached for key at provider version ver. A stale
// entry is discarded and reported as a miss; an entry ahead of ver means
// the provider's version counter regressed.
func (c *table[K, V]) get(key K, ver uint64) (V, bool, error) {
	var zero V
	c.mu.RLock()
	en, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}
	switch {
	case en.version == ver:
		return en.val, true, nil
	case en.version < ver:
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && cur.version < ver {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false, nil
	default:
		return zero, false, fmt.Errorf("%w: entry at %d, provider at %d", ErrConsistency, en.version, ver)
	}
}

// put stores a value computed under version fill. The insert is dropped
// when a mutation landed during the computation (fill != cur) or when an
// entry of the same or a newer generation is already present.
func (c *table[K, V]) put(key K, v V, fill, cur uint64) {
	if fill != cur {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if en, ok := c.m[key]; ok && en.version >= fill {
		return
	}
	c.m[key] = tableEntry[V]{val: v, version: fill}
}

// flush clears the table. Mutually exclusive with any in-flight insert.
func (c *table[K, V]) flush() {
	c.mu.Lock()
	clear(c.m)
	c.mu.Unlock()
}

func (c *table[K, V]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
