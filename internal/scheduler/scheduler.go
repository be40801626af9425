// Package scheduler triggers the weekly report on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// ReportSender is the job the scheduler runs
type ReportSender interface {
	SendWeeklyReport(ctx context.Context) error
}

// Scheduler runs ReportSender on a standard five-field cron expression
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	sender  ReportSender
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec and creates a stopped scheduler. timeout bounds each
// run.
func New(spec string, sender ReportSender, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		spec:    spec,
		sender:  sender,
		timeout: timeout,
		log:     log,
	}, nil
}

// Start registers the weekly job and starts the cron loop. Runs inherit
// ctx; cancelling it aborts an in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("failed to register weekly report job: %w", err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started", zap.String("schedule", s.spec))
	return nil
}

// RunOnce runs the job immediately, outside the schedule
func (s *Scheduler) RunOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.sender.SendWeeklyReport(runCtx); err != nil {
		s.log.Error("Weekly report run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	s.log.Info("Weekly report run finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	_ = s.RunOnce(ctx)
}

// Stop halts the cron loop and waits briefly for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		s.log.Warn("Timed out waiting for running report job")
	}

	if cancel != nil {
		cancel()
	}
	s.log.Info("Scheduler stopped")
}

// Next returns the next scheduled run, or the zero time when not started
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
