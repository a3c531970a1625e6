package dashboard

import "sync"

// Registry holds one Cache per portal session
type Registry struct {
	mu     sync.RWMutex
	caches map[string]*Cache
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]*Cache)}
}

// For returns the session's cache for site. A cache for a different site is
// discarded and replaced by a fresh, unloaded one.
func (r *Registry) For(sessionID, site string) *Cache {
	r.mu.RLock()
	c, ok := r.caches[sessionID]
	r.mu.RUnlock()
	if ok && c.Site() == site {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[sessionID]; ok && c.Site() == site {
		return c
	}
	c = NewCache(site)
	r.caches[sessionID] = c
	return c
}

// Drop forgets the session's cache
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, sessionID)
}

// Len returns the number of sessions with a cache
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches)
}
