// Package jobs runs the recurring accrual trigger (cron).
// scheduler.go wires the configured schedule to the engine and exposes an
// on-demand trigger for the admin action. Overlap protection lives in the
// engine itself; a rejected run is logged here, never retried blindly.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"vitrontrade.com/roi-engine/internal/common"
	"vitrontrade.com/roi-engine/internal/config"
	"vitrontrade.com/roi-engine/internal/features/investment"
)

// Scheduler manages the periodic accrual runs.
type Scheduler struct {
	cron   *cron.Cron
	engine *investment.Service
	loc    *time.Location
}

// NewScheduler creates the scheduler in the configured timezone. The zone
// matters: it decides when the accrual day rolls over.
func NewScheduler(engine *investment.Service, cfg *config.Config) *Scheduler {
	loc := cfg.Location()
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		engine: engine,
		loc:    loc,
	}
}

// Start registers the accrual job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		log.Info("[CRON] Scheduled ROI accrual run")
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid accrual schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	log.Infof("Scheduler started (%s, %q)", s.loc, schedule)
	return nil
}

// RunNow triggers one accrual run outside the schedule (admin action).
func (s *Scheduler) RunNow(ctx context.Context) {
	log.Info("On-demand ROI accrual run")
	s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.engine.ProcessDue(ctx, time.Now().In(s.loc))
	if errors.Is(err, common.ErrRunInProgress) {
		log.Warn("Accrual run skipped: previous run still in progress")
		return
	}
	if err != nil {
		log.WithError(err).Error("Accrual run failed")
		return
	}
	if res.Failed > 0 {
		log.WithFields(log.Fields{
			"processed": res.Processed,
			"failed":    res.Failed,
		}).Warn("Accrual run finished with failures")
	}
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}
