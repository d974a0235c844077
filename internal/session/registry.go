package session

import (
	"time"

	"github.com/google/uuid"

	"billed/internal/cache"
)

// Registry maps opaque session ids, carried in a cookie, to their Storage.
// Idle sessions expire after the configured TTL.
type Registry struct {
	entries *cache.LRUCache[*MemoryStorage]
}

func NewRegistry(maxSessions int, ttl time.Duration) *Registry {
	return &Registry{entries: cache.NewSlidingLRUCache[*MemoryStorage](maxSessions, ttl)}
}

// Get returns the storage for id, if the session is still alive.
func (r *Registry) Get(id string) (*MemoryStorage, bool) {
	if id == "" {
		return nil, false
	}
	return r.entries.Get(id)
}

// Create starts a new empty session and returns its id.
func (r *Registry) Create() (string, *MemoryStorage) {
	id := uuid.NewString()
	s := NewMemoryStorage()
	r.entries.Set(id, s)
	return id, s
}

// Delete forgets a session.
func (r *Registry) Delete(id string) {
	r.entries.Delete(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.entries.Size()
}

// Cleaner exposes the backing cache for periodic cleanup.
func (r *Registry) Cleaner() cache.Cleaner {
	return r.entries
}
