package monitoring

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/cognito-labs/cognito-be/internal/services"
)

// ReconcileLoop periodically re-runs the admin reconciliation so a failed
// boot-time run heals once the database becomes reachable again.
type ReconcileLoop struct {
	adminSvc *services.AdminService
	schedule cron.Schedule
	done     chan bool
}

// NewReconcileLoop creates a loop driven by the given cron expression.
func NewReconcileLoop(adminSvc *services.AdminService, cronExpr string) (*ReconcileLoop, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &ReconcileLoop{
		adminSvc: adminSvc,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the loop. It blocks until Stop is called.
func (l *ReconcileLoop) Run() {
	log.Info().Msg("Starting background admin reconciliation loop...")
	for {
		next := l.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-l.done:
			timer.Stop()
			log.Info().Msg("Stopping background admin reconciliation loop.")
			return
		case <-timer.C:
			if err := l.adminSvc.EnsureAdmin(); err != nil {
				log.Error().Err(err).Msg("Scheduled admin reconciliation failed")
			}
		}
	}
}

// Stop halts the loop.
func (l *ReconcileLoop) Stop() {
	l.done <- true
}
