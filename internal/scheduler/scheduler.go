package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quotawatch/quotawatch/pkg/monitor"
)

// Scheduler runs evaluation passes on a fixed interval. Each invocation is
// idempotent and safe to overlap with manual runs: the alert state engine
// serializes per key and persists with compare-and-swap, so the scheduler
// only guards against piling up passes inside this process.
type Scheduler struct {
	runner   *monitor.Runner
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
}

// New creates a scheduler.
func New(runner *monitor.Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run executes one pass immediately and then one per interval until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous evaluation pass still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	snap, err := s.runner.Run(ctx)
	if err != nil {
		if snap == nil {
			s.logger.Error("evaluation pass failed", "error", err)
			return
		}
		s.logger.Warn("evaluation pass partially failed", "error", err)
	}
	if snap != nil {
		s.logger.Info("scheduled pass published snapshot",
			"snapshot_id", snap.ID,
			"worst_risk", snap.WorstRisk,
			"active_alerts", len(snap.Alerts),
		)
	}
}
