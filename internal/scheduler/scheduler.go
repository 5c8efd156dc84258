package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/robfig/cron/v3"
)

// Digester sends the daily digest to every user.
type Digester interface {
	Run(ctx context.Context) (service.DigestResult, error)
}

// Sweeper expires open posts whose pickup window has ended.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type Config struct {
	DigestSchedule string
	SweepSchedule  string
	Location       *time.Location
	// SweepTimeout bounds a single sweep. The digest has no deadline and runs to the last user.
	SweepTimeout time.Duration
}

// Scheduler runs the digest and expiry jobs on cron schedules.
// Start and Stop are idempotent.
type Scheduler struct {
	cron    *cron.Cron
	digest  Digester
	sweep   Sweeper
	cfg     Config
	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(cfg Config, digest Digester, sweep Sweeper) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 5 * time.Minute
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		digest: digest,
		sweep:  sweep,
		cfg:    cfg,
	}

	_, err := s.cron.AddFunc(cfg.DigestSchedule, func() { s.runJob("digest", 0, s.runDigest) })
	if err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", cfg.DigestSchedule, err)
	}
	_, err = s.cron.AddFunc(cfg.SweepSchedule, func() { s.runJob("sweep", s.cfg.SweepTimeout, s.runSweep) })
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}

	return s, nil
}

// Start begins firing the configured jobs.
// Calling it twice is a no-op.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		slog.Debug("scheduler already started")
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	slog.Info("scheduler started",
		"digest_schedule", s.cfg.DigestSchedule,
		"sweep_schedule", s.cfg.SweepSchedule,
		"timezone", s.cfg.Location.String())
}

// Stop halts scheduling and waits for running jobs up to ctx's deadline.
// A digest in progress is not interrupted.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunDigest runs the digest now, outside the schedule, with the same metrics
// and panic handling as a scheduled run.
func (s *Scheduler) RunDigest(ctx context.Context) (service.DigestResult, error) {
	var res service.DigestResult
	err := observe("digest", func() error {
		var err error
		res, err = s.digest.Run(ctx)
		return err
	})
	return res, err
}

func (s *Scheduler) runJob(name string, timeout time.Duration, job func(ctx context.Context) error) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := observe(name, func() error { return job(ctx) })
	if err != nil {
		slog.Error("scheduled job failed", "job", name, "error", err)
	}
}

// observe records the outcome and duration of one job run and turns a panic into an error.
func observe(name string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
			result = "panic"
		} else if err != nil {
			result = "error"
		}
		jobRunsTotal.WithLabelValues(name, result).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	return fn()
}

func (s *Scheduler) runDigest(ctx context.Context) error {
	_, err := s.digest.Run(ctx)
	return err
}

func (s *Scheduler) runSweep(ctx context.Context) error {
	_, err := s.sweep.Sweep(ctx)
	return err
}
