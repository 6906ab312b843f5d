package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// ExpiryWorker periodically finalizes overdue pending checks. Redemption
// already refuses overdue checks on read, so this sweep only keeps stored
// statuses and reports from drifting.
type ExpiryWorker struct {
	checkRepo port.CheckRepository
	logger    *zap.Logger
	interval  time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(checkRepo port.CheckRepository, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		checkRepo: checkRepo,
		logger:    logger,
		interval:  interval,
	}
}

// Name returns the worker name
func (w *ExpiryWorker) Name() string {
	return "check-expiry"
}

// Start launches the sweep loop. One sweep runs immediately on start.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.done = make(chan struct{})

	go w.run(ctx)
	return nil
}

// Stop waits for the loop to exit
func (w *ExpiryWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	return nil
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer close(w.done)

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	expired, err := w.checkRepo.ExpireOverdue(ctx, time.Now())
	if err != nil {
		w.logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		w.logger.Info("Expired overdue checks", zap.Int64("count", expired))
	}
}
