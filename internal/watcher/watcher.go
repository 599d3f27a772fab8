// Package watcher re-runs the incremental ingest pass on a fixed
// interval, keeping the index in sync while the user keeps editing.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the polling interval when none is configured.
const DefaultInterval = 10 * time.Second

// PassFunc executes one incremental ingest pass.
type PassFunc func(ctx context.Context) error

// Watcher runs a PassFunc on a ticker until stopped or cancelled.
type Watcher struct {
	interval time.Duration
	pass     PassFunc

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// New creates a watcher. A non-positive interval falls back to
// DefaultInterval.
func New(interval time.Duration, pass PassFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		interval: interval,
		pass:     pass,
		stopCh:   make(chan struct{}),
	}
}

// Interval returns the configured polling interval.
func (w *Watcher) Interval() time.Duration {
	return w.interval
}

// Start runs an immediate pass and then one pass per tick. It blocks
// until the context is cancelled or Stop is called. Pass errors are
// logged and the loop keeps going; only cancellation ends it.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.runPass(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			if err := w.runPass(ctx); err != nil {
				return err
			}
		}
	}
}

// runPass executes one pass. A cancelled context is the only fatal
// outcome; anything else is logged so a transient API failure does not
// kill the watch loop.
func (w *Watcher) runPass(ctx context.Context) error {
	if err := w.pass(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("watch pass failed", slog.String("error", err.Error()))
	}
	return nil
}

// Stop ends the watch loop. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
}
