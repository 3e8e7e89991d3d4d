package app

import (
	"alertdash/config"
	"alertdash/internal/metrics"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ensure Scheduler implements ConfigObserver
var _ config.ConfigObserver = (*Scheduler)(nil)

// PollTarget is what the scheduler drives.
type PollTarget interface {
	RefreshAlerts(ctx context.Context) error
	RefreshStatus(ctx context.Context) error
	// Halt makes responses that complete after Stop inert.
	Halt()
}

// stream is one polling loop with its own busy counter.
type stream struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) error
	inflight atomic.Int32
	resetCh  chan time.Duration
	skipped  atomic.Int64
	fetches  atomic.Int64
}

// Scheduler polls alerts and status on independent timers. A tick that
// lands while the previous fetch of the same stream is still running is
// skipped. A Scheduler runs once; Start after Stop does nothing.
type Scheduler struct {
	logger  *zap.Logger
	target  PollTarget
	metrics *metrics.Recorder

	alerts *stream
	status *stream

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	loops    sync.WaitGroup
	requests sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, target PollTarget, rec *metrics.Recorder, alertsEvery, statusEvery time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:  logger,
		target:  target,
		metrics: rec,
		alerts: &stream{
			name:     metrics.StreamAlerts,
			interval: alertsEvery,
			fetch:    target.RefreshAlerts,
			resetCh:  make(chan time.Duration, 1),
		},
		status: &stream{
			name:     metrics.StreamStatus,
			interval: statusEvery,
			fetch:    target.RefreshStatus,
			resetCh:  make(chan time.Duration, 1),
		},
		stopCh: make(chan struct{}),
	}
}

// Start fetches both streams once and starts their timers.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.loops.Add(2)
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		zap.Duration("alertsInterval", s.alerts.interval),
		zap.Duration("statusInterval", s.status.interval),
	)

	for _, st := range []*stream{s.alerts, s.status} {
		s.launch(ctx, st)
		go s.run(ctx, st)
	}
}

// Stop cancels both timers and waits for the timer goroutines to exit. No tick
// fires after Stop returns. Requests already sent are left to finish but their
// results are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.target.Halt()
	s.loops.Wait()
	s.logger.Info("scheduler stopped")
}

// RefreshAlertsNow issues an alerts fetch outside the timer. It does not wait
// for a running fetch; sequencing decides which response wins.
func (s *Scheduler) RefreshAlertsNow(ctx context.Context) {
	if !s.running() {
		return
	}
	s.launch(context.WithoutCancel(ctx), s.alerts)
}

// Wait blocks until every fetch launched so far has returned.
func (s *Scheduler) Wait() {
	s.requests.Wait()
}

// OnConfigUpdate retimes the loops when the intervals change.
func (s *Scheduler) OnConfigUpdate(cfg *config.Config) {
	s.retime(s.alerts, cfg.Polling.AlertsInterval)
	s.retime(s.status, cfg.Polling.StatusInterval)
}

// SchedulerStats is a point-in-time view of the scheduler counters.
type SchedulerStats struct {
	Running       bool  `json:"running"`
	AlertFetches  int64 `json:"alert_fetches"`
	StatusFetches int64 `json:"status_fetches"`
	AlertSkips    int64 `json:"alert_skips"`
	StatusSkips   int64 `json:"status_skips"`
}

func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Running:       s.running(),
		AlertFetches:  s.alerts.fetches.Load(),
		StatusFetches: s.status.fetches.Load(),
		AlertSkips:    s.alerts.skipped.Load(),
		StatusSkips:   s.status.skipped.Load(),
	}
}

func (s *Scheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

func (s *Scheduler) retime(st *stream, d time.Duration) {
	if d <= 0 {
		return
	}
	// replace any pending value so the newest always wins
	for {
		select {
		case st.resetCh <- d:
			return
		default:
		}
		select {
		case <-st.resetCh:
		default:
		}
	}
}

func (s *Scheduler) run(ctx context.Context, st *stream) {
	defer s.loops.Done()

	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case d := <-st.resetCh:
			if d != st.interval {
				st.interval = d
				ticker.Reset(d)
				s.logger.Info("poll interval updated",
					zap.String("stream", st.name),
					zap.Duration("interval", d),
				)
			}
		case <-ticker.C:
			// stop may race with a ready tick
			select {
			case <-s.stopCh:
				return
			default:
			}
			if st.inflight.Load() > 0 {
				st.skipped.Add(1)
				s.metrics.RecordSkippedTick(st.name)
				s.logger.Debug("previous fetch still running, skipping tick", zap.String("stream", st.name))
				continue
			}
			s.launch(ctx, st)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context, st *stream) {
	st.inflight.Add(1)
	st.fetches.Add(1)
	s.requests.Add(1)
	go func() {
		defer s.requests.Done()
		defer st.inflight.Add(-1)
		if err := st.fetch(ctx); err != nil {
			s.logger.Warn("poll fetch failed",
				zap.String("stream", st.name),
				zap.Error(err),
			)
		}
	}()
}
