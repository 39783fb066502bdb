package pos

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Scheduler runs the reconciler on a fixed interval. A cycle that overruns
// the interval delays the next one instead of overlapping it.
type Scheduler struct {
	s gocron.Scheduler
}

// NewScheduler registers the sync job. clock may be nil.
func NewScheduler(r *Reconciler, every time.Duration, clock clockwork.Clock) (*Scheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(timerCycle, r, every),
		gocron.WithName("pos-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return &Scheduler{s: s}, nil
}

// Start begins ticking. The first cycle runs one interval from now.
func (s *Scheduler) Start() { s.s.Start() }

// Shutdown stops the timer and waits for a running cycle to finish.
func (s *Scheduler) Shutdown() error { return s.s.Shutdown() }

// timerCycle runs one scheduled cycle. A failure is logged and the next
// tick retries.
func timerCycle(r *Reconciler, every time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), every+DefaultTimeout)
	defer cancel()
	if _, err := r.Run(ctx, "timer"); err != nil {
		log.Printf("pos-sync: timer cycle failed: %v", err)
	}
}
