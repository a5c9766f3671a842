// workers/scheduler.go
package workers

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is one orphan-identity sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	sched gocron.Scheduler
}

// NewScheduler registers the orphan sweep to run every interval. Runs never
// overlap; a slow sweep makes the next tick wait.
func NewScheduler(sweeper Sweeper, interval time.Duration, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			runSweep(ctx, sweeper)
		}),
		gocron.WithName("orphan-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	return &Scheduler{sched: sched}, nil
}

func runSweep(ctx context.Context, sweeper Sweeper) {
	start := time.Now()
	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("[Scheduler] orphan sweep failed after deleting %d: %v", deleted, err)
		return
	}
	if deleted > 0 {
		log.Printf("🧹 [Scheduler] removed %d orphan identities in %s", deleted, time.Since(start).Round(time.Millisecond))
	}
}

func (s *Scheduler) Start() {
	log.Println("⏰ [Scheduler] started")
	s.sched.Start()
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() error {
	log.Println("⏹️ [Scheduler] stopped")
	return s.sched.Shutdown()
}
