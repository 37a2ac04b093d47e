package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

const (
	// MaxAttempts is the number of consecutive failures after which a job is disabled.
	MaxAttempts = 10
	// StabilityWindow is the failure-free run time after which the failure count resets.
	StabilityWindow = 60 * time.Second
	// MaxBackoff caps the delay between retries.
	MaxBackoff = 300 * time.Second
)

// ErrJobPanicked marks a run that ended in a panic.
var ErrJobPanicked = errors.New("job panicked")

// Job is a long-running background task. Run is expected to loop until ctx is
// done; returning nil means the job finished on purpose.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Scheduler supervises jobs, restarting failed runs with exponential backoff.
type Scheduler struct {
	registry *Registry
	clock    Clock
	status   *StatusReporter
	metrics  *Metrics
	logger   *zap.Logger
	wg       conc.WaitGroup
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithStatusReporter persists job records.
func WithStatusReporter(status *StatusReporter) Option {
	return func(s *Scheduler) {
		s.status = status
	}
}

// WithMetrics records failures and disablements.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// New creates a scheduler owning registry.
func New(registry *Registry, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: registry,
		clock:    RealClock{},
		logger:   logger.Named("scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Schedule starts supervising job. It returns false without starting anything
// when a job with the same name is already supervised.
func (s *Scheduler) Schedule(ctx context.Context, job Job) bool {
	name := job.Name()

	if !s.registry.Acquire(name) {
		s.logger.Warn("Job is already running", zap.String("job", name))
		return false
	}

	s.metrics.started()

	s.wg.Go(func() {
		defer s.metrics.finished()
		defer s.registry.Release(name)

		s.supervise(ctx, job)
	})

	return true
}

// Wait blocks until every supervised job has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Running returns the names of the supervised jobs.
func (s *Scheduler) Running() []string {
	return s.registry.Running()
}

func (s *Scheduler) supervise(ctx context.Context, job Job) {
	logger := s.logger.With(zap.String("job", job.Name()))
	record := Record{Name: job.Name(), Interval: int64(job.Interval() / time.Second)}

	s.report(ctx, &record, StateWaiting)

	if err := s.clock.Sleep(ctx, job.Interval()); err != nil {
		s.report(ctx, &record, StateStopped)
		return
	}

	curve := newBackoff()
	resumed := s.clock.Now()

	for {
		s.report(ctx, &record, StateRunning)

		err := s.run(ctx, job)
		if err == nil {
			logger.Info("Job completed")
			s.report(ctx, &record, StateCompleted)

			return
		}

		if ctx.Err() != nil {
			logger.Info("Job stopped")
			s.report(ctx, &record, StateStopped)

			return
		}

		now := s.clock.Now()

		if record.ConsecutiveFailures > 0 && now.Sub(resumed) >= StabilityWindow {
			record.ConsecutiveFailures = 0
			curve.Reset()
		}

		record.ConsecutiveFailures++
		record.LastFailure = now.Unix()
		record.LastError = err.Error()
		s.metrics.failure(job.Name())

		if record.ConsecutiveFailures >= MaxAttempts {
			logger.Error("Job disabled after repeated failures",
				zap.Uint32("attempts", record.ConsecutiveFailures),
				zap.Error(err))
			s.metrics.disable(job.Name())
			s.report(ctx, &record, StateDisabled)

			return
		}

		delay := curve.NextBackOff()
		logger.Warn("Job failed, retrying",
			zap.Uint32("attempts", record.ConsecutiveFailures),
			zap.Duration("backoff", delay),
			zap.Error(err))
		s.report(ctx, &record, StateBackoff)

		if err := s.clock.Sleep(ctx, delay); err != nil {
			s.report(ctx, &record, StateStopped)
			return
		}

		resumed = s.clock.Now()
	}
}

// run executes one attempt, turning a panic into an error.
func (s *Scheduler) run(ctx context.Context, job Job) error {
	var (
		catcher panics.Catcher
		err     error
	)

	catcher.Try(func() {
		err = job.Run(ctx)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		return errors.Join(ErrJobPanicked, recovered.AsError())
	}

	return err
}

func (s *Scheduler) report(ctx context.Context, record *Record, state State) {
	if s.status == nil {
		return
	}

	record.State = state
	record.UpdatedAt = s.clock.Now().Unix()
	s.status.Report(context.WithoutCancel(ctx), *record)
}

// newBackoff returns the retry curve min(2^attempts, 300) seconds.
func newBackoff() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(MaxBackoff),
		backoff.WithMaxElapsedTime(0),
	)
}
