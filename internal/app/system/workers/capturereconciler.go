// internal/app/system/workers/capturereconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler replays captured payments that never reached the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, minAge time.Duration, limit int64) (int, error)
}

// batchSize bounds how many captures one pass replays.
const batchSize = 100

// CaptureReconciler is a background worker that periodically replays
// captured-but-unrecorded payments.
type CaptureReconciler struct {
	payments Reconciler
	log      *zap.Logger
	interval time.Duration
	// minAge keeps the worker away from captures a request is still
	// recording inline.
	minAge  time.Duration
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewCaptureReconciler creates a new reconciler worker.
//
// Parameters:
//   - payments: the payment service
//   - logger: zap logger for logging
//   - interval: how often to run a pass (e.g., 1 minute)
//   - minAge: how long a capture must sit untouched before it is replayed
func NewCaptureReconciler(payments Reconciler, logger *zap.Logger, interval, minAge time.Duration) *CaptureReconciler {
	return &CaptureReconciler{
		payments: payments,
		log:      logger,
		interval: interval,
		minAge:   minAge,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *CaptureReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("capture reconciler started",
		zap.Duration("interval", w.interval),
		zap.Duration("min_age", w.minAge))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *CaptureReconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("capture reconciler stopped")
}

func (w *CaptureReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (w *CaptureReconciler) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	n, err := w.payments.Reconcile(ctx, w.minAge, batchSize)
	if err != nil {
		w.log.Error("capture reconciliation failed", zap.Error(err))
		return n
	}
	if n > 0 {
		w.log.Info("reconciled captured payments", zap.Int("count", n))
	}
	return n
}
