package projection

import "sync"

// Cache memoizes a single projected State keyed by exact log position.
//
// Scoped per caller, never a package-level singleton. The owner must
// call Invalidate on every append - a cache that survives an append
// would serve a stale "current" view, which is exactly the bug the
// write-before-use gate exists to catch.
type Cache struct {
	mu       sync.Mutex
	state    State
	position int64
	valid    bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached state if it was stored for exactly this
// position.
func (c *Cache) Get(position int64) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.position != position {
		return State{}, false
	}
	return c.state, true
}

// Put stores a state under its own position.
func (c *Cache) Put(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.position = s.Position
	c.valid = true
}

// Invalidate drops the cached state. Must be called on every append.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.state = State{}
}
