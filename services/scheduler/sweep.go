// Package schedulersvc runs the periodic certificate sweep.
package schedulersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
)

// Sweeper is implemented by certificate.Service.
type Sweeper interface {
	Sweep(ctx context.Context) (certificate.SweepReport, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  core.Logger
	timeout time.Duration
}

// NewScheduler registers the sweep on the given cron spec. An empty spec schedules nothing.
func NewScheduler(spec string, sweeper Sweeper, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
	if spec == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, errors.Wrapf(err, "scheduling sweep %q", spec)
	}
	return s, nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("certificate sweep: %v", err), err)
		return
	}
	s.logger.Info("certificate sweep done", map[string]interface{}{
		"checked":  report.Checked,
		"issued":   report.Issued,
		"failed":   report.Failed,
		"duration": time.Since(start).String(),
	})
}

// Jobs is the number of scheduled jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running sweep, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
