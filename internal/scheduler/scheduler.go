package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/metering/internal/billing"
	"github.com/edvin/metering/internal/meter"
)

// CollectorRunner runs one usage collection pass.
type CollectorRunner interface {
	RunOnce(ctx context.Context) (meter.Summary, error)
}

// BillingRunner runs the daily billing jobs.
type BillingRunner interface {
	GenerateMonthlyInvoices(ctx context.Context) (billing.Summary, error)
	CheckOverdueInvoices(ctx context.Context) (int, error)
}

// Scheduler drives the periodic jobs from in-process timers: an hourly usage
// collection tick, a daily billing tick, and a one-shot delayed collection at
// startup. Overlap protection lives in the collector itself; a tick that
// lands during an in-flight pass is skipped there.
type Scheduler struct {
	collector CollectorRunner
	billing   BillingRunner
	logger    zerolog.Logger

	CollectInterval time.Duration
	BillingInterval time.Duration
	InitialDelay    time.Duration

	// now is overridable in tests.
	now func() time.Time
}

func New(logger zerolog.Logger, collector CollectorRunner, billing BillingRunner) *Scheduler {
	return &Scheduler{
		collector:       collector,
		billing:         billing,
		logger:          logger.With().Str("component", "scheduler").Logger(),
		CollectInterval: time.Hour,
		BillingInterval: 24 * time.Hour,
		InitialDelay:    30 * time.Second,
		now:             time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the timers.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("collect_interval", s.CollectInterval).
		Dur("billing_interval", s.BillingInterval).
		Dur("initial_delay", s.InitialDelay).
		Msg("scheduler started")

	initial := time.NewTimer(s.InitialDelay)
	defer initial.Stop()
	collectTicker := time.NewTicker(s.CollectInterval)
	defer collectTicker.Stop()
	billingTicker := time.NewTicker(s.BillingInterval)
	defer billingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-initial.C:
			s.runCollection(ctx)
		case <-collectTicker.C:
			s.runCollection(ctx)
		case <-billingTicker.C:
			s.runBilling(ctx)
		}
	}
}

func (s *Scheduler) runCollection(ctx context.Context) {
	if _, err := s.collector.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("collection pass failed")
	}
}

func (s *Scheduler) runBilling(ctx context.Context) {
	if _, err := s.billing.CheckOverdueInvoices(ctx); err != nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
	}

	// The underlying timer fires daily; the scheduler owns the date guard so
	// invoices for the prior month are generated once, on the first.
	if shouldGenerateMonthly(s.now()) {
		if _, err := s.billing.GenerateMonthlyInvoices(ctx); err != nil {
			s.logger.Error().Err(err).Msg("monthly invoice pass failed")
		}
	}
}

func shouldGenerateMonthly(now time.Time) bool {
	return now.Day() == 1
}
