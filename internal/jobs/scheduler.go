package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/firekit-dev/firekit/internal/logging"
)

const runTimeout = 30 * time.Minute

type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// AddProfileResync schedules job with a six-field cron spec.
func (s *Scheduler) AddProfileResync(spec string, job *ProfileResync) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		ctx = logging.WithRequestID(ctx, "cron-profile-resync")

		if _, _, err := job.Run(ctx); err != nil {
			logging.NewLogger(ctx).LogError("jobs.profile_resync", err)
		}
	})
	if err != nil {
		return err
	}
	log.Printf("Cron scheduler: profile resync scheduled (%s)", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
