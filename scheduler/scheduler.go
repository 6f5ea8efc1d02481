// Package scheduler runs named cron jobs for the lifetime of a container.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"kestrel/config"
	"kestrel/container"
	"kestrel/lifecycle"
	"kestrel/metrics"
	"kestrel/util/goroutine"
)

var (
	// ErrDuplicateJob is returned when a job name is scheduled twice
	ErrDuplicateJob = errors.New("job already scheduled")
	// ErrInvalidSpec is returned for unparseable cron expressions
	ErrInvalidSpec = errors.New("invalid cron spec")
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with named jobs and panic isolation.
type Scheduler struct {
	cron    *cron.Cron
	enabled bool
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures New.
type Options struct {
	Enabled  bool
	Timezone string
	Logger   *zap.SugaredLogger
}

// New creates a scheduler. Specs use six fields, seconds first.
func New(opts Options) (*Scheduler, error) {
	tz := time.UTC
	if opts.Timezone != "" {
		loc, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", opts.Timezone, err)
		}
		tz = loc
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(tz),
			cron.WithSeconds(),
		),
		enabled: opts.Enabled,
		logger:  logger,
		jobs:    make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Schedule registers fn under name. Jobs may be added before or after Start.
func (s *Scheduler) Schedule(name, spec string, fn Job) error {
	if fn == nil {
		return fmt.Errorf("nil job %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("%w %q for job %s: %v", ErrInvalidSpec, spec, name, err)
	}
	s.jobs[name] = id
	s.logger.Debugw("Job scheduled", "job", name, "spec", spec)
	return nil
}

// Remove unschedules name. It reports whether the job existed.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	return true
}

func (s *Scheduler) run(name string, fn Job) {
	err := goroutine.Guard("scheduler job "+name, s.logger, func() error {
		return fn(s.ctx)
	})
	if err != nil {
		metrics.ScheduledJobRuns.WithLabelValues(name, "failure").Inc()
		s.logger.Warnw("Scheduled job failed", "job", name, "error", err)
		return
	}
	metrics.ScheduledJobRuns.WithLabelValues(name, "success").Inc()
}

// Start begins running jobs. It is a no-op when the scheduler is disabled or
// already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Infow("Scheduler started", "jobs", len(s.jobs))
}

// Stop halts the scheduler and waits for running jobs until ctx expires.
// A stopped scheduler cannot be restarted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if !s.running {
		return nil
	}
	s.running = false

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Infow("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled jobs: %w", ctx.Err())
	}
}

// Running reports whether jobs are being run.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation time of name.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Module binds a *Scheduler configured from *config.Config and ties it to the
// lifecycle manager. Composed right after lifecycle.Module.
func Module() container.Module {
	return container.ModuleFunc("scheduler", func(b *container.Binder) error {
		container.Provide(b, func(r container.Resolver) (*Scheduler, error) {
			cfg, err := container.Resolve[*config.Config](r)
			if err != nil {
				return nil, err
			}
			logger, err := container.Resolve[*zap.SugaredLogger](r)
			if err != nil {
				return nil, err
			}
			lc, err := container.Resolve[*lifecycle.Manager](r)
			if err != nil {
				return nil, err
			}

			s, err := New(Options{
				Enabled:  cfg.Scheduler.Enabled,
				Timezone: cfg.Scheduler.Timezone,
				Logger:   logger.Named("scheduler"),
			})
			if err != nil {
				return nil, err
			}

			err = lc.Append(lifecycle.Hook{
				Name: "scheduler",
				OnStart: func(context.Context) error {
					s.Start()
					return nil
				},
				OnStop: s.Stop,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}, container.Eager())
		return nil
	})
}
