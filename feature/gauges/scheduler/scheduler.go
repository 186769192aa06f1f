package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jancika1998-netizen/Water-Level/core/metrics"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Config holds configuration for the background sync scheduler.
type Config struct {
	// IntervalSeconds is the steady-state cycle interval.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"1200"`
	// Bootstrap controls whether a full-history cycle runs on startup.
	Bootstrap bool `mapstructure:"bootstrap" default:"true"`
}

// State is the scheduler's lifecycle state.
type State int32

const (
	// Bootstrapping is the initial state; one full cycle runs here.
	Bootstrapping State = iota
	// Steady runs incremental cycles at the configured interval forever.
	Steady
)

// Syncer runs one fetch-normalize-group-reconcile cycle. Implemented by
// gauges.Service, whose writer mutex keeps scheduled and on-demand cycles
// from interleaving.
type Syncer interface {
	Sync(ctx context.Context, mode models.SyncMode) (models.SyncSummary, error)
}

// Scheduler drives the background sync loop: one bootstrap cycle in Full
// mode (attempted exactly once per process, success or failure), then
// incremental cycles every interval. Consecutive failures stretch the
// delay with a capped doubling backoff.
type Scheduler struct {
	syncer   Syncer
	clock    clockwork.Clock
	interval time.Duration
	boot     bool
	logger   *zap.Logger
	metrics  *metrics.Metrics
	state    atomic.Int32
}

// New creates a scheduler. Pass clockwork.NewRealClock() in production and
// a fake clock in tests.
func New(syncer Syncer, cfg Config, clock clockwork.Clock, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 1200 * time.Second
	}
	return &Scheduler{
		syncer:   syncer,
		clock:    clock,
		interval: interval,
		boot:     cfg.Bootstrap,
		logger:   logger,
		metrics:  m,
	}
}

// State reports the current scheduler state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes the scheduling loop until the context is cancelled. It is
// strictly sequential: a cycle runs to completion before the loop sleeps.
// Nothing here is fatal; any cycle error is logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	if s.boot {
		s.logger.Info("bootstrap sync starting", zap.String("mode", string(models.ModeFull)))
		if _, err := s.syncer.Sync(ctx, models.ModeFull); err != nil {
			// Bootstrap is attempted exactly once per process lifetime,
			// not retried; the steady loop picks up from here.
			s.logger.Error("bootstrap sync failed", zap.Error(err))
		}
	}

	s.state.Store(int32(Steady))
	s.metrics.SchedulerSteady.Set(1)
	s.logger.Info("scheduler steady", zap.Duration("interval", s.interval))

	delay := s.interval
	failures := 0
	for {
		timer := s.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping", zap.Error(ctx.Err()))
			return
		case <-timer.Chan():
		}

		if _, err := s.syncer.Sync(ctx, models.ModeIncremental); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			delay = nextDelay(s.interval, failures)
			s.logger.Error("scheduled sync failed",
				zap.Int("consecutive_failures", failures),
				zap.Duration("next_attempt_in", delay),
				zap.Error(err))
			continue
		}
		failures = 0
		delay = s.interval
	}
}

// nextDelay doubles the interval per consecutive failure, capped at four
// intervals so a long outage cannot push the next attempt out indefinitely.
func nextDelay(interval time.Duration, failures int) time.Duration {
	maxDelay := 4 * interval
	delay := interval
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
