package engine

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// lockTable hands out per-account mutexes. Entries are reference counted and
// dropped once no caller holds or waits for them.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uuid.UUID]*accountLock)}
}

// acquire locks every distinct id in ascending byte order and returns the
// release function. The fixed order prevents two transfers between the same
// pair of accounts from deadlocking.
func (t *lockTable) acquire(ids ...uuid.UUID) (release func()) {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	held := make([]*accountLock, len(ids))
	t.mu.Lock()
	for i, id := range ids {
		l, ok := t.locks[id]
		if !ok {
			l = &accountLock{}
			t.locks[id] = l
		}
		l.refs++
		held[i] = l
	}
	t.mu.Unlock()

	for _, l := range held {
		l.mu.Lock()
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		t.mu.Lock()
		for i, id := range ids {
			held[i].refs--
			if held[i].refs == 0 {
				delete(t.locks, id)
			}
		}
		t.mu.Unlock()
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
