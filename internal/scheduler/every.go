package scheduler

import (
	"context"
	"time"
)

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context) error

type periodicJob struct {
	name     string
	interval time.Duration
	clock    Clock
	tick     TickFunc
}

// Every wraps tick into a Job that runs it once per interval until ctx is done.
// The first tick happens as soon as the scheduler starts the run, and an error
// from tick ends the run so the scheduler can back off.
func Every(name string, interval time.Duration, tick TickFunc) Job {
	return EveryWithClock(name, interval, RealClock{}, tick)
}

// EveryWithClock is Every with an explicit clock.
func EveryWithClock(name string, interval time.Duration, clock Clock, tick TickFunc) Job {
	return &periodicJob{name: name, interval: interval, clock: clock, tick: tick}
}

func (j *periodicJob) Name() string {
	return j.name
}

func (j *periodicJob) Interval() time.Duration {
	return j.interval
}

func (j *periodicJob) Run(ctx context.Context) error {
	for {
		if err := j.tick(ctx); err != nil {
			return err
		}

		if err := j.clock.Sleep(ctx, j.interval); err != nil {
			return err
		}
	}
}
