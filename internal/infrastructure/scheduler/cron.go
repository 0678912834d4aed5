package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"RefScreener/internal/ports"
)

// CronScheduler triggers recurring batch sweeps on a cron expression.
type CronScheduler struct {
	spec string
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, logger *log.Logger) *CronScheduler {
	var opts []cron.Option
	if logger != nil {
		opts = append(opts, cron.WithLogger(cron.PrintfLogger(logger)))
	}
	return &CronScheduler{
		spec: spec,
		cron: cron.New(opts...),
	}
}

// Start registers the job and begins the cron loop. The job runs in the
// scheduler's own goroutine.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if _, err := c.cron.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("cron expression %q: %w", c.spec, err)
	}
	c.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
