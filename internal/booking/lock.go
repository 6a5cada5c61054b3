package booking

import (
	"fmt"
	"sync"
)

// ResourceLocks serializes concurrent writers targeting the same
// (resource, date) key. Writers for different resources or dates proceed in
// parallel. The sqlite IMMEDIATE transaction remains the correctness
// backstop; this lock keeps competing local writers from ever reaching the
// busy handler.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{locks: make(map[string]*entry)}
}

// Lock acquires the lock for (resourceID, date) and returns the release
// function. Entries are dropped once the last holder releases, so the map
// does not grow with history.
func (l *ResourceLocks) Lock(resourceID int64, date string) func() {
	key := fmt.Sprintf("%d:%s", resourceID, date)

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
