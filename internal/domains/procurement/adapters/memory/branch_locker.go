package memory

import (
	"context"
	"sync"

	"github.com/Apurer/replenishment-engine/internal/domains/procurement/ports"
)

var _ ports.BranchLocker = (*BranchLocker)(nil)

// BranchLocker holds one mutex per branch within the process.
type BranchLocker struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func NewBranchLocker() *BranchLocker {
	return &BranchLocker{locks: map[int64]chan struct{}{}}
}

// Lock blocks until the branch is free or ctx is done.
func (l *BranchLocker) Lock(ctx context.Context, branchID int64) (func(), error) {
	sem := l.semaphore(branchID)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

func (l *BranchLocker) semaphore(branchID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[branchID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[branchID] = sem
	}
	return sem
}
