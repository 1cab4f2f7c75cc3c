// Package jobs runs the periodic sweep. The request-entry middleware
// covers busy deployments; the cron pass covers idle ones.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"storygram/api/internal/lifecycle"
)

type Scheduler struct {
	cron     *cron.Cron
	sweeper  *lifecycle.Sweeper
	schedule string
	log      zerolog.Logger
}

func NewScheduler(sweeper *lifecycle.Sweeper, schedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sweeper:  sweeper,
		schedule: schedule,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish,
// bounded to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		s.log.Error().Err(err).Msg("scheduled sweep failed")
	}
}
