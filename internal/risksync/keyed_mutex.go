package risksync

import "sync"

// keyedMutex serializes reconciliation per (wallet, symbol) key while
// letting unrelated keys proceed in parallel. Callers for the same key
// queue behind the lock and each run to completion in turn.
//
// The lock table grows with the set of keys ever seen; that set is
// bounded by the configured instruments, so entries are never reaped.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns the unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
