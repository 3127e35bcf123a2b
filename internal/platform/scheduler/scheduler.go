package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is a periodic task. Run errors are logged; they never stop the job.
type Job struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker goroutine.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	logger  *slog.Logger
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

var ErrAlreadyRunning = errors.New("scheduler already running")

func New(logger *slog.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{jobs: jobs, logger: logger}
}

// Start launches every job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			return errors.New("scheduler job " + job.Name + " needs a positive interval and a run func")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	group := &errgroup.Group{}
	for _, job := range s.jobs {
		job := job
		group.Go(func() error {
			s.loop(runCtx, job)
			return nil
		})
	}
	s.cancel = cancel
	s.group = group
	s.running = true
	s.logger.Info("scheduler started",
		"event", "scheduler_started",
		"module", "internal/platform/scheduler",
		"layer", "platform",
		"job_count", len(s.jobs),
	)
	return nil
}

// Stop ends every ticker loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, group := s.cancel, s.group
	s.running = false
	s.mu.Unlock()

	cancel()
	_ = group.Wait()
	s.logger.Info("scheduler stopped",
		"event", "scheduler_stopped",
		"module", "internal/platform/scheduler",
		"layer", "platform",
	)
}

// Run starts the scheduler and blocks until ctx is done. Runs in flight at
// that point still finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	if job.RunOnStart {
		s.runOnce(ctx, job)
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce starts a run only while the loop is live. The run itself gets a
// context that Stop does not cancel, so an iteration always completes.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := job.Run(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("scheduled job failed",
			"event", "scheduler_job_failed",
			"module", "internal/platform/scheduler",
			"layer", "platform",
			"job", job.Name,
			"error", err.Error(),
		)
	}
}
