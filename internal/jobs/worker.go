package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor is one unit of periodic work. Implementations must be safe to
// invoke again if a previous pass is still visible in the store; the worker
// gives no overlap guarantee across process restarts.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval.
type Worker struct {
	processor JobProcessor
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
}

func NewWorker(processor JobProcessor, interval time.Duration) *Worker {
	return &Worker{
		processor: processor,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval, until ctx is
// cancelled or Stop is called. Intended to run on its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.done)

	log.Printf("job worker started, interval %v", w.interval)

	// The first pass does not wait out a full interval; long intervals would
	// otherwise leave a freshly restarted process idle for hours.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopped, context cancelled")
			return
		case <-w.stop:
			log.Println("job worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job worker pass failed: %v", err)
	}
}

// Stop signals the worker and waits for the in-flight pass to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
