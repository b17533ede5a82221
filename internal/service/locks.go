package service

import (
	"sync"

	"github.com/google/uuid"
)

// OfferLocks serializes pipeline and write-back runs per offer id so two
// concurrent invocations on the same offer cannot interleave their commits.
// Different offers proceed in parallel.
type OfferLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewOfferLocks() *OfferLocks {
	return &OfferLocks{locks: map[uuid.UUID]*entry{}}
}

// acquire blocks until the per-offer lock is held and returns the release
// function. Entries are dropped once the last holder releases.
func (l *OfferLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
