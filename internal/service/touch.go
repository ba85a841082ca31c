package service

import (
	"context"
	"log"
	"time"
)

// EntryToucher applies access-count side effects for served entries.
type EntryToucher interface {
	TouchEntries(ctx context.Context, ids []string) error
}

// TouchQueue is a record-then-forget channel for entry access side effects.
// Retrieval enqueues and moves on; a lost or failed touch is logged and
// swallowed, it never fails the read it accompanies.
type TouchQueue struct {
	toucher EntryToucher
	ch      chan []string
	done    chan struct{}
	timeout time.Duration
}

func NewTouchQueue(toucher EntryToucher, buffer int) *TouchQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &TouchQueue{
		toucher: toucher,
		ch:      make(chan []string, buffer),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
}

// Start consumes the queue until ctx is cancelled.
func (q *TouchQueue) Start(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ids := <-q.ch:
			q.apply(ids)
		}
	}
}

// Stop waits for the consumer goroutine to exit.
func (q *TouchQueue) Stop() {
	<-q.done
}

// Enqueue records entry ids for a deferred touch. Drops the batch when the
// queue is full rather than blocking the serving path.
func (q *TouchQueue) Enqueue(ids []string) {
	if len(ids) == 0 {
		return
	}
	select {
	case q.ch <- ids:
	default:
		log.Printf("touch queue full, dropping %d entry touches", len(ids))
	}
}

func (q *TouchQueue) apply(ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.toucher.TouchEntries(ctx, ids); err != nil {
		log.Printf("entry touch failed for %d entries: %v", len(ids), err)
	}
}
