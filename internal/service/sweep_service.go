package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/config"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
)

// maxParallelPortfolios bounds how many portfolios one sweep run reconciles
// concurrently. Dates within a portfolio stay sequential (the holdings sweep
// carries running state), but separate portfolios are independent.
const maxParallelPortfolios = 4

// SweepService runs the scheduled reconciliation sweep: on each tick it
// reconciles the trailing lookback window for every active portfolio. Because
// per-date records are idempotent, a run cut short by a crash or timeout just
// leaves dates for the next tick: no duplicate work, no corruption.
type SweepService struct {
	valuationService *ValuationService
	portfolioService *PortfolioService
	cfg              config.SweepConfig
	cron             *cron.Cron
}

// NewSweepService creates a sweep service from the sweep configuration.
func NewSweepService(valuationService *ValuationService, portfolioService *PortfolioService, cfg config.SweepConfig) *SweepService {
	return &SweepService{
		valuationService: valuationService,
		portfolioService: portfolioService,
		cfg:              cfg,
		cron:             cron.New(),
	}
}

// Start registers the cron entry and starts the scheduler. No-op when the
// sweep is disabled.
func (s *SweepService) Start() error {
	if !s.cfg.Enabled {
		log.Printf("Reconciliation sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, s.RunOnce)
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Reconciliation sweep scheduled (%q, lookback %d days)", s.cfg.Schedule, s.cfg.LookbackDays)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *SweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes a single sweep over all active portfolios. Portfolios are
// processed in parallel with bounded concurrency; a failure in one portfolio
// is logged and does not stop the others.
func (s *SweepService) RunOnce() {
	portfolios, err := s.portfolioService.GetActivePortfolios()
	if err != nil {
		log.Printf("WARN: sweep aborted, failed to list portfolios: %v", err)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)

	g := new(errgroup.Group)
	g.SetLimit(maxParallelPortfolios)
	for _, portfolio := range portfolios {
		portfolio := portfolio
		g.Go(func() error {
			records, err := s.valuationService.ReconcileJob(context.Background(), portfolio.ID, from, to, false)
			if err != nil {
				log.Printf("WARN: sweep failed for portfolio %s: %v", portfolio.ID, err)
				return nil
			}
			log.Printf("Sweep reconciled portfolio %s: %d records in [%s..%s]",
				portfolio.ID, len(records), dates.Key(from), dates.Key(to))
			return nil
		})
	}
	_ = g.Wait()
}
