package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"ambitious/internal/config"
	"ambitious/internal/logging"
)

// cronLogger routes cron's own messages into the process logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	logging.Logger().Debug("cron "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	logging.Logger().Error("cron "+msg, append(kv, "error", err.Error())...)
}

// Scheduler triggers the jobs on their cron expressions.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers every job that has both an expression and a dependency.
// Overlapping runs of the same job are skipped and a panic in a job is recovered.
func NewScheduler(ctx context.Context, cfg config.JobsConfig, d Deps) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	add := func(name, spec string, enabled bool, run func()) error {
		if spec == "" || !enabled {
			return nil
		}
		if _, err := c.AddFunc(spec, run); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		logging.Info("job scheduled", map[string]any{"job": name, "spec": spec})
		return nil
	}
	if err := add("engage", cfg.EngageCron, d.Sweeper != nil, func() { _, _ = RunEngagementOnce(ctx, d) }); err != nil {
		return nil, err
	}
	if err := add("refill", cfg.RefillCron, d.Refiller != nil, func() { _, _ = RunRefillOnce(ctx, d, cfg.MinQueueSize) }); err != nil {
		return nil, err
	}
	if err := add("publish", cfg.PublishCron, d.Publisher != nil, func() { _, _ = RunPublishOnce(ctx, d, cfg.PublishBatch) }); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

// Jobs is the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

// Run starts the scheduler and blocks until ctx is cancelled and running jobs finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logging.Info("scheduler stopped", nil)
	return ctx.Err()
}
