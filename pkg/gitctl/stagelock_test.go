package gitctl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStageLockSerializes(t *testing.T) {
	l := newStageLock(5, time.Second)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.acquire(ctx); err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lock held")
	case <-time.After(50 * time.Millisecond):
	}

	l.release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed after release")
	}
	l.release()
}

func TestStageLockTimeout(t *testing.T) {
	l := newStageLock(5, 30*time.Millisecond)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.release()

	err := l.acquire(ctx)
	if !errors.Is(err, ErrStagingTimeout) {
		t.Fatalf("expected ErrStagingTimeout, got %v", err)
	}
}

func TestStageLockBoundedQueue(t *testing.T) {
	l := newStageLock(1, time.Minute)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.release()

	// One waiter fits in the queue.
	waiterErr := make(chan error, 1)
	waiterCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { waiterErr <- l.acquire(waiterCtx) }()
	time.Sleep(20 * time.Millisecond)

	// The queue is now full: further callers fail fast.
	if err := l.acquire(ctx); !errors.Is(err, ErrStagingBusy) {
		t.Fatalf("expected ErrStagingBusy, got %v", err)
	}

	cancel()
	if err := <-waiterErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("waiter error = %v, want context.Canceled", err)
	}
}

func TestStageLockContextCancel(t *testing.T) {
	l := newStageLock(5, time.Minute)
	if err := l.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.acquire(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("canceled acquire never returned")
	}
}
