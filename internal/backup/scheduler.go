package backup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hako/durafmt"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

// Exporter writes and prunes export artifacts.
type Exporter interface {
	Export(ctx context.Context, cfg pkgconfig.Config) (*Artifact, error)
	Prune(retentionDays int) (int, error)
}

// SnapshotFunc returns the settings snapshot to export.
type SnapshotFunc func() pkgconfig.Config

// IntervalFunc maps a frequency to its period.
type IntervalFunc func(pkgconfig.BackupFrequency) time.Duration

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithIntervals overrides the period of each frequency.
func WithIntervals(fn IntervalFunc) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.interval = fn
		}
	}
}

// Scheduler owns the recurring export task. At most one task is active at any time.
type Scheduler struct {
	exporter Exporter
	snapshot SnapshotFunc
	interval IntervalFunc
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	freq   pkgconfig.BackupFrequency

	running atomic.Int32
}

// NewScheduler creates an idle Scheduler. Each firing exports snapshot() and prunes by its
// backupRetention.
func NewScheduler(
	exporter Exporter,
	snapshot SnapshotFunc,
	log logger.Logger,
	opts ...SchedulerOption,
) *Scheduler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Scheduler{
		exporter: exporter,
		snapshot: snapshot,
		interval: pkgconfig.BackupFrequency.Interval,
		log:      log.With("component", "scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Schedule cancels the active task, waits for it to stop and, when enabled, starts a new
// task with the period of freq.
func (s *Scheduler) Schedule(freq pkgconfig.BackupFrequency, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !enabled {
		s.log.Debug("recurring export disabled")

		return
	}

	if !freq.IsValid() {
		s.log.Warn("unknown backup frequency, using daily", "frequency", freq)

		freq = pkgconfig.BackupDaily
	}

	period := s.interval(freq)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.cancel = cancel
	s.done = done
	s.freq = freq

	s.running.Add(1)

	go s.loop(ctx, period, done)

	s.log.Info("recurring export scheduled",
		"frequency", freq,
		"every", durafmt.Parse(period).LimitFirstN(2).String(),
	)
}

// Active reports whether a task is scheduled.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}

// Frequency returns the frequency of the active task, or "" when idle.
func (s *Scheduler) Frequency() pkgconfig.BackupFrequency {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.freq
}

// Running returns the number of task goroutines alive.
func (s *Scheduler) Running() int {
	return int(s.running.Load())
}

// Stop cancels the active task and waits for it to stop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done

	s.cancel = nil
	s.done = nil
	s.freq = ""
}

func (s *Scheduler) loop(ctx context.Context, period time.Duration, done chan struct{}) {
	defer close(done)
	defer s.running.Add(-1)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	cfg := s.snapshot()

	if _, err := s.exporter.Export(ctx, cfg); err != nil {
		s.log.Warn("recurring export failed", "error", err)

		return
	}

	if _, err := s.exporter.Prune(cfg.BackupRetention); err != nil {
		s.log.Warn("failed to prune exports", "error", err)
	}
}
