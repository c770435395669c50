package batch

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// FairLock serializes execution-metadata creation. Waiters acquire in FIFO
// order (semaphore.Weighted queues waiters in arrival order), each waiter
// gives up after the configured timeout, and the queue depth is observable.
type FairLock struct {
	sem     *semaphore.Weighted
	waiting atomic.Int64
}

func NewFairLock() *FairLock {
	return &FairLock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is held or the timeout elapses.
func (l *FairLock) Acquire(ctx context.Context, timeout time.Duration) error {
	l.waiting.Add(1)
	defer l.waiting.Add(-1)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ErrQueueTimeout
	}
	return nil
}

func (l *FairLock) Release() {
	l.sem.Release(1)
}

// QueueDepth counts callers currently blocked in Acquire.
func (l *FairLock) QueueDepth() int {
	return int(l.waiting.Load())
}
