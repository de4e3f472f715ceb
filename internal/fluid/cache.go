package fluid

import "sync"

type memoOp uint8

const (
	opTPH memoOp = iota
)

type memoKey struct {
	op    memoOp
	fluid string
	a, b  float64
}

// memoCache memoises pure fluid lookups. Reads dominate writes once the
// Newton iteration narrows in, so a RWMutex is sufficient; the cache is
// bounded to keep long sweeps from growing it without limit.
type memoCache struct {
	mu sync.RWMutex
	m  map[memoKey]float64
}

const memoLimit = 1 << 16

func newMemoCache() *memoCache {
	return &memoCache{m: make(map[memoKey]float64)}
}

func (c *memoCache) get(op memoOp, fluid string, a, b float64) (float64, bool) {
	c.mu.RLock()
	v, ok := c.m[memoKey{op, fluid, a, b}]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoCache) put(op memoOp, fluid string, a, b, v float64) {
	c.mu.Lock()
	if len(c.m) >= memoLimit {
		c.m = make(map[memoKey]float64)
	}
	c.m[memoKey{op, fluid, a, b}] = v
	c.mu.Unlock()
}
