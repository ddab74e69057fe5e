package services

import "sync"

// keyedMutex serializes operations per identity while letting different
// identities proceed fully in parallel. Entries are created lazily and
// kept for the process lifetime; the identity space is bounded by the
// active client population.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}
	km.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
