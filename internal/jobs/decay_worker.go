package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// MemoryDecayService defines the interface for the memory decay pass.
type MemoryDecayService interface {
	RunDecay(ctx context.Context, inactivityThreshold time.Duration) (int64, error)
}

// DecayWorker runs the periodic importance-decay pass over user memories.
// The pass is idempotent, so overlapping schedules or manual invocations
// alongside the worker are harmless.
type DecayWorker struct {
	service   MemoryDecayService
	threshold time.Duration
}

// NewDecayWorker creates a new DecayWorker instance
func NewDecayWorker(service MemoryDecayService, inactivityThreshold time.Duration) *DecayWorker {
	return &DecayWorker{
		service:   service,
		threshold: inactivityThreshold,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *DecayWorker) ProcessJobs(ctx context.Context) error {
	count, err := w.service.RunDecay(ctx, w.threshold)
	if err != nil {
		return fmt.Errorf("failed to run memory decay: %w", err)
	}

	if count > 0 {
		log.Printf("Decayed importance on %d inactive memories", count)
	}

	return nil
}
