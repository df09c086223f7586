package gitctl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Errors returned by the staging lock. Both are terminal for the queued
// caller: the operation fails instead of waiting indefinitely.
var (
	ErrStagingBusy    = errors.New("staging lock: too many pending operations")
	ErrStagingTimeout = errors.New("staging lock: timed out waiting for lock")
)

// stageLock is a capacity-1 semaphore with a bounded wait queue and a wait
// timeout. It serializes every git-mutating operation on one controller.
type stageLock struct {
	sem        chan struct{}
	timeout    time.Duration
	maxPending int

	mu      sync.Mutex
	pending int
}

func newStageLock(maxPending int, timeout time.Duration) *stageLock {
	return &stageLock{
		sem:        make(chan struct{}, 1),
		timeout:    timeout,
		maxPending: maxPending,
	}
}

// acquire blocks until the lock is held, the timeout elapses, or ctx is
// canceled. It fails immediately when the wait queue is full.
func (l *stageLock) acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.pending >= l.maxPending {
		l.mu.Unlock()
		return ErrStagingBusy
	}
	l.pending++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.pending--
		l.mu.Unlock()
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrStagingTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *stageLock) release() {
	<-l.sem
}
