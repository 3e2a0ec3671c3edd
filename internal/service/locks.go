package service

import (
	"sync"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// keyedMutex serializes load-mutate-persist cycles per RecordKey so two
// sessions editing the same month cannot overwrite each other's writes.
// Entries are reference counted and dropped when nobody holds them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.RecordKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.RecordKey]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key domain.RecordKey) func() {
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
