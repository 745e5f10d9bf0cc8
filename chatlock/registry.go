// Package chatlock hands out one mutex per chat identity so at most one
// in-flight request mutates a given conversation's history at a time.
package chatlock

import "sync"

// Registry creates locks lazily and never removes them. The leak is bounded
// by the number of distinct chats ever seen, which is accepted in exchange
// for never racing a removal against a waiting locker.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// AcquireFor returns the lock for chatID, creating it on first access. The
// caller locks and unlocks it around one full send/receive cycle. No
// fairness is guaranteed beyond what sync.Mutex provides.
func (r *Registry) AcquireFor(chatID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[chatID] = lock
	}
	return lock
}

// Len reports how many chat locks exist; used by tests and diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
