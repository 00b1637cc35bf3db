package usecase

import (
	"sync"

	"notetree/internal/domain"
)

// TreeLocks serializes the commit-and-emit section of a mutation per tree.
// The engine already serializes its own calls, but the emitted record must
// reach the side-log in the same order the engine assigned indices; holding
// one lock across both keeps the stream order equal to the index order.
type TreeLocks struct {
	mu    sync.Mutex
	locks map[domain.Address]*sync.Mutex
}

func NewTreeLocks() *TreeLocks {
	return &TreeLocks{locks: make(map[domain.Address]*sync.Mutex)}
}

// Lock acquires the mutation lock for one tree and returns its release func.
func (l *TreeLocks) Lock(id domain.Address) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Mutation usecases that are not wired with an explicit lock set share this
// one, so appends and updates built separately still serialize per tree.
var defaultTreeLocks = NewTreeLocks()
