// Package cron runs the background jobs of the runtime.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"latke.GO/core/logging"
	"latke.GO/core/metrics"
)

// ErrUnknownJob is returned by RunOnce for a name that is not registered.
var ErrUnknownJob = errors.New("cron: unknown job")

// ErrStarted is returned by Add after Start.
var ErrStarted = errors.New("cron: service already started")

// Service schedules the registered jobs plus the ones added with Add.
type Service struct {
	log *zap.Logger

	mu      sync.Mutex
	sched   *cron.Cron
	extra   []Job
	jobs    map[string]Job
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewService returns a stopped Service.
func NewService(log *zap.Logger) *Service {
	return &Service{log: logging.OrNop(log).Named("cron")}
}

// Add schedules a job that is not in the global registry. It must be
// called before Start.
func (s *Service) Add(name, schedule string, run RunFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return ErrStarted
	}
	s.extra = append(s.extra, Job{Name: name, Schedule: schedule, Run: run})
	return nil
}

func (s *Service) collect() (map[string]Job, error) {
	all := make(map[string]Job)
	for _, j := range append(Jobs(), s.extra...) {
		if _, ok := all[j.Name]; ok {
			return nil, fmt.Errorf("cron: duplicate job %s", j.Name)
		}
		all[j.Name] = j
	}
	return all, nil
}

// Start registers every job with the scheduler and starts it. A bad
// schedule fails Start and nothing is scheduled. Jobs receive a context
// that is cancelled by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return ErrStarted
	}

	jobs, err := s.collect()
	if err != nil {
		return err
	}

	stdLog := zap.NewStdLog(s.log)
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(stdLog)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(stdLog))),
	)
	// jobs outlive the start call; only Stop cancels them
	baseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	for name, j := range jobs {
		j := j
		if _, err := c.AddFunc(j.Schedule, func() { s.execute(baseCtx, j) }); err != nil {
			cancel()
			return fmt.Errorf("cron: failed to register job %s: %w", name, err)
		}
	}

	c.Start()
	s.sched = c
	s.jobs = jobs
	s.baseCtx = baseCtx
	s.cancel = cancel
	s.log.Info("Cron scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

func (s *Service) execute(ctx context.Context, j Job, args ...string) error {
	err := j.Run(ctx, args...)
	if err != nil {
		metrics.JobRuns.WithLabelValues(j.Name, "error").Inc()
		s.log.Error("Cron job failed", zap.String("job", j.Name), zap.Error(err))
		return err
	}
	metrics.JobRuns.WithLabelValues(j.Name, "ok").Inc()
	return nil
}

// Stop stops scheduling and waits for running jobs, or for ctx. Stopping
// a service that is not running is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.sched
	cancel := s.cancel
	s.sched = nil
	s.cancel = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	defer cancel()
	select {
	case <-done.Done():
		s.log.Info("Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: waiting for running jobs: %w", ctx.Err())
	}
}

// Running reports whether the scheduler is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched != nil
}

// Entries returns the number of scheduled jobs.
func (s *Service) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return 0
	}
	return len(s.sched.Entries())
}

// RunOnce runs a single job by name immediately, outside the scheduler.
func (s *Service) RunOnce(ctx context.Context, name string, args ...string) error {
	s.mu.Lock()
	jobs := s.jobs
	s.mu.Unlock()
	if jobs == nil {
		var err error
		s.mu.Lock()
		jobs, err = s.collect()
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}
	j, ok := jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j, args...)
}
