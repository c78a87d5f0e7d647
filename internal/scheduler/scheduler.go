package scheduler

import (
	"context"
	"log/slog"

	"commerce-billing-engine/internal/service"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the recurring-billing batch on a cron schedule, daily at
// midnight by default. The same batch is also callable on demand through the
// billing endpoint.
type Scheduler struct {
	cron       *cron.Cron
	logger     *slog.Logger
	billingSvc service.RecurringBillingService
}

func New(logger *slog.Logger, billingSvc service.RecurringBillingService) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		logger:     logger,
		billingSvc: billingSvc,
	}
}

func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runRecurringBilling)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("recurring billing scheduler started", "cron", spec)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runRecurringBilling() {
	s.logger.Info("starting scheduled recurring billing process")

	results, err := s.billingSvc.ProcessDueSubscriptions(context.Background())
	if err != nil {
		s.logger.Error("error in scheduled recurring billing", "error", err)
		return
	}

	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	s.logger.Info("scheduled recurring billing finished",
		"processed", len(results),
		"successful", successful,
		"failed", len(results)-successful)
}
