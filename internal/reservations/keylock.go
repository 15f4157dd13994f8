package reservations

import (
	"sync"

	"flightdesk/internal/holds"
)

// keyLocks hands out one mutex per seat. Entries live only while someone holds
// or waits for them, so the map stays the size of the in-flight work.
type keyLocks struct {
	mu    sync.Mutex
	locks map[holds.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int // guarded by keyLocks.mu
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[holds.Key]*keyLock)}
}

// lock blocks until key is free and returns the matching unlock.
func (k *keyLocks) lock(key holds.Key) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
