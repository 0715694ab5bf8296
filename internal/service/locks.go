package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ProjectLocks serializes mutating operations per project. Readiness checks
// and completion writes race across callers sharing one store; holding the
// project's slot for the whole read-decide-write sequence prevents two
// callers from both observing "not yet complete" and double-inserting.
type ProjectLocks struct {
	mu    sync.Mutex
	slots map[int64]*semaphore.Weighted
}

// NewProjectLocks creates an empty lock table.
func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{slots: make(map[int64]*semaphore.Weighted)}
}

// Run acquires the project's slot, runs fn, and releases the slot.
// Blocks while another caller holds the same project. Returns ctx.Err() if
// the context is cancelled while waiting. If the lock table is nil, fn is
// executed directly without concurrency control.
func (l *ProjectLocks) Run(ctx context.Context, projectID int64, fn func() error) error {
	if l == nil {
		return fn()
	}
	sem := l.slot(projectID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	return fn()
}

func (l *ProjectLocks) slot(projectID int64) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.slots[projectID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.slots[projectID] = sem
	}
	return sem
}
