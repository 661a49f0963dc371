// Package janitor periodically reaps expired authorization states and
// credentials from backends that do not expire entries on their own.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// LockName is the distributed lock taken around each sweep.
const LockName = "oauth-cleanup"

// Cleaner is a store that can drop its expired entries.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// Janitor runs Cleanup on a set of stores at a fixed interval.
// With a lock configured, only one instance sweeps per cycle.
type Janitor struct {
	cleaners map[string]Cleaner
	lock     driven.DistributedLock
	logger   *slog.Logger
	interval time.Duration
	lockTTL  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the janitor.
type Config struct {
	Cleaners map[string]Cleaner     // Named stores to sweep
	Lock     driven.DistributedLock // Optional: coordinates sweeps across instances
	Logger   *slog.Logger
	Interval time.Duration // Time between sweeps (default: 5m)
	LockTTL  time.Duration // TTL of the sweep lock (default: Interval)
}

// New creates a janitor.
func New(cfg Config) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = interval
	}

	return &Janitor{
		cleaners: cfg.Cleaners,
		lock:     cfg.Lock,
		logger:   logger.With("component", "janitor"),
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs
// until Stop is called or ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting",
		"interval", j.interval,
		"stores", len(j.cleaners),
		"locked", j.lock != nil,
	)

	go j.loop(ctx)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	doneCh := j.doneCh
	j.mu.Unlock()

	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// Running reports whether the loop is active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) loop(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one cleanup cycle. If another instance holds the lock the
// cycle is skipped. Store failures do not stop the remaining stores.
func (j *Janitor) Sweep(ctx context.Context) error {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, LockName, j.lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			j.logger.Debug("cleanup lock held by another instance, skipping cycle")
			return nil
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), LockName); err != nil {
				j.logger.Warn("failed to release cleanup lock", "error", err)
			}
		}()
	}

	start := time.Now()
	var errs []error
	for name, c := range j.cleaners {
		if err := c.Cleanup(ctx); err != nil {
			j.logger.Error("cleanup failed", "store", name, "error", err)
			errs = append(errs, err)
		}
	}
	j.logger.Debug("sweep complete", "duration", time.Since(start), "failed", len(errs))

	return errors.Join(errs...)
}
