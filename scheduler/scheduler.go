// Package scheduler runs the periodic maintenance jobs of the API.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const jobTimeout = 30 * time.Second

// Sweeper clears password-reset tokens whose expiry has passed.
type Sweeper interface {
	SweepExpiredResets(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *zerolog.Logger
}

func New(logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger: logger,
	}
}

// AddResetSweep registers the expired reset token sweep on schedule.
func (s *Scheduler) AddResetSweep(schedule string, sweeper Sweeper) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.sweep(sweeper) }); err != nil {
		return fmt.Errorf("schedule reset sweep %q: %w", schedule, err)
	}
	return nil
}

func (s *Scheduler) sweep(sweeper Sweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := sweeper.SweepExpiredResets(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("reset token sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("cleared", n).Msg("expired reset tokens cleared")
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stopped before jobs finished")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
