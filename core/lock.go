/*
lock.go - Per-user serialization

PURPOSE:
  All ledger mutations for a single user must be serialized so that two
  concurrent redemption requests cannot both pass the available >= cost
  check before either deducts (classic check-then-act race). Cross-user
  operations proceed fully in parallel.

USAGE:
  unlock := locks.Lock(userID)
  defer unlock()

SEE ALSO:
  - coins/ledger.go, progression/ledger.go: Lock around every mutation
  - gamification/facade.go: Holds the lock across award + evaluate
*/
package core

import "sync"

// KeyedMutex provides one mutex per key. Mutexes are created lazily and
// never released; the key space (active user IDs) is small and bounded.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns the matching unlock func.
func (k *KeyedMutex) Lock(key string) func() {
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
