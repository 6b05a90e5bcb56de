package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/ledger"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/repository"
)

// ValuationService is the reconciliation orchestrator: it diffs a requested
// date range against the cached valuation store, computes only the missing
// dates, and writes them back idempotently. Repeated calls over a fully
// reconciled range make zero upstream calls and write nothing.
type ValuationService struct {
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	valuationRepo   *repository.ValuationRepository
	resolver        *Resolver
	now             func() time.Time
}

// NewValuationService creates a ValuationService with the real clock.
func NewValuationService(
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	valuationRepo *repository.ValuationRepository,
	resolver *Resolver,
) *ValuationService {
	return NewValuationServiceWithClock(portfolioRepo, transactionRepo, valuationRepo, resolver, time.Now)
}

// NewValuationServiceWithClock creates a ValuationService with an injected
// clock, so tests control "today" for range clamping.
func NewValuationServiceWithClock(
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	valuationRepo *repository.ValuationRepository,
	resolver *Resolver,
	now func() time.Time,
) *ValuationService {
	return &ValuationService{
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		valuationRepo:   valuationRepo,
		resolver:        resolver,
		now:             now,
	}
}

// Reconcile ensures a valuation record exists for every date in [from, to]
// on which the portfolio held at least one position, computing and persisting
// the missing ones. With forceUpdate the full range is recomputed and
// existing records overwritten; otherwise existing records are immutable and
// only absent dates are computed.
//
// The requested range is clamped to [from, min(to, today)]; valuations are
// never computed into the future. Dates with no holdings (pre-inception, or
// every position closed out) get no record: absence stays distinguishable
// from a computed zero.
//
// Data-quality problems (unresolvable prices, missing rates, feed outages)
// never fail the call; they degrade to zero contributions on records marked
// incomplete. Errors are returned only for invalid input or storage failure,
// so a crash mid-range just leaves a subset of dates uncomputed for the next
// call to pick up.
func (s *ValuationService) Reconcile(ctx context.Context, portfolioID string, from, to time.Time, forceUpdate bool) ([]model.ValuationRecord, error) {
	return s.reconcile(ctx, portfolioID, from, to, forceUpdate, s.resolver.NewSession())
}

// ReconcileJob is Reconcile for schedulers running outside a request session;
// currency conversion goes through the job-scoped rate table.
func (s *ValuationService) ReconcileJob(ctx context.Context, portfolioID string, from, to time.Time, forceUpdate bool) ([]model.ValuationRecord, error) {
	return s.reconcile(ctx, portfolioID, from, to, forceUpdate, s.resolver.NewJobSession())
}

func (s *ValuationService) reconcile(ctx context.Context, portfolioID string, from, to time.Time, forceUpdate bool, session *Session) ([]model.ValuationRecord, error) {
	if _, err := s.portfolioRepo.GetPortfolio(portfolioID); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, apperrors.ErrInvalidDateRange
	}

	// Never compute into the future.
	from = dates.Day(from)
	to = dates.Min(dates.Day(to), dates.Day(s.now()))
	if from.After(to) {
		return []model.ValuationRecord{}, nil
	}

	existing, err := s.valuationRepo.FindByPortfolioAndRange(portfolioID, from, to)
	if err != nil {
		return nil, err
	}

	missing := s.datesNeedingComputation(existing, from, to, forceUpdate)
	if len(missing) == 0 {
		return existing, nil
	}

	transactions, err := s.transactionRepo.GetTransactions(portfolioID)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		// Pre-inception for the whole range: nothing to write.
		return existing, nil
	}

	if err := s.computeAndStore(ctx, portfolioID, transactions, missing, session); err != nil {
		return nil, err
	}

	return s.valuationRepo.FindByPortfolioAndRange(portfolioID, from, to)
}

// datesNeedingComputation returns the ascending dates in [from, to] that must
// be computed: the full range under forceUpdate, otherwise the range minus
// already-present dates. This set difference is the idempotence contract.
func (s *ValuationService) datesNeedingComputation(existing []model.ValuationRecord, from, to time.Time, forceUpdate bool) []time.Time {
	all := dates.Range(from, to)
	if forceUpdate {
		return all
	}

	present := make(map[string]struct{}, len(existing))
	for _, record := range existing {
		present[dates.Key(record.Date)] = struct{}{}
	}

	missing := make([]time.Time, 0, len(all))
	for _, day := range all {
		if _, ok := present[dates.Key(day)]; !ok {
			missing = append(missing, day)
		}
	}
	return missing
}

// computeAndStore runs the single ascending sweep over the missing dates.
// Dates must be processed in increasing order: the sweeper carries running
// holdings from one date to the next. Price series are primed once per symbol
// for the whole span with bounded fan-out before any per-date work.
func (s *ValuationService) computeAndStore(ctx context.Context, portfolioID string, transactions []model.Transaction, missing []time.Time, session *Session) error {
	sweeper := ledger.NewSweeper(transactions)

	type dateHoldings struct {
		date     time.Time
		holdings map[string]float64
	}

	perDate := make([]dateHoldings, 0, len(missing))
	symbolSet := make(map[string]struct{})
	for _, day := range missing {
		holdings := ledger.PositiveOnly(sweeper.Advance(day))
		if len(holdings) == 0 {
			continue
		}
		for symbol := range holdings {
			symbolSet[symbol] = struct{}{}
		}
		perDate = append(perDate, dateHoldings{date: day, holdings: holdings})
	}
	if len(perDate) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}
	session.PrimeAll(ctx, symbols, perDate[0].date, perDate[len(perDate)-1].date)

	for _, dh := range perDate {
		record := s.valueDate(ctx, portfolioID, dh.date, dh.holdings, session)
		if err := s.valuationRepo.Upsert(record); err != nil {
			return err
		}
	}

	return nil
}

// valueDate computes one date's total value from its positive holdings. An
// unresolved price contributes 0 and marks the record incomplete, as does an
// unconverted foreign-currency series. By construction only positive
// quantities reach this point; a negative quantity here would be a
// programming defect, not a runtime condition to handle.
func (s *ValuationService) valueDate(ctx context.Context, portfolioID string, date time.Time, holdings map[string]float64, session *Session) model.ValuationRecord {
	total := 0.0
	complete := true

	for symbol, quantity := range holdings {
		price := session.Resolve(ctx, symbol, date)
		if price == 0 {
			log.Printf("WARN: unresolved price for %s on %s, contributing 0 to portfolio %s",
				symbol, dates.Key(date), portfolioID)
			complete = false
			continue
		}
		if session.Unconverted(symbol) {
			complete = false
		}
		total += quantity * price
	}

	return model.ValuationRecord{
		ID:            uuid.NewString(),
		PortfolioID:   portfolioID,
		Date:          date,
		TotalValueUSD: round(total),
		IsComplete:    complete,
		ComputedAt:    s.now().UTC(),
	}
}

// History reads back cached valuation records for a portfolio without
// triggering any computation.
func (s *ValuationService) History(portfolioID string, from, to time.Time) ([]model.ValuationRecord, error) {
	if _, err := s.portfolioRepo.GetPortfolio(portfolioID); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, apperrors.ErrInvalidDateRange
	}
	return s.valuationRepo.FindByPortfolioAndRange(portfolioID, dates.Day(from), dates.Day(to))
}

// InvalidateRange deletes cached valuations for [from, to]. The engine never
// invalidates on its own: when a past transaction is edited, the ledger layer
// calls this for the affected dates and the next reconciliation recomputes
// them. Returns the number of deleted records.
func (s *ValuationService) InvalidateRange(portfolioID string, from, to time.Time) (int64, error) {
	if _, err := s.portfolioRepo.GetPortfolio(portfolioID); err != nil {
		return 0, err
	}
	if from.After(to) {
		return 0, apperrors.ErrInvalidDateRange
	}
	return s.valuationRepo.DeleteRange(portfolioID, dates.Day(from), dates.Day(to))
}

// AggregateHistory sums cached valuations per date across the given
// portfolios. Portfolios have different inception dates; a portfolio with no
// record on a date contributes 0 to that date's sum without any standalone
// record existing for it. Dates where no portfolio has a record are omitted
// entirely.
func (s *ValuationService) AggregateHistory(portfolioIDs []string, from, to time.Time) ([]model.DailyTotal, error) {
	if from.After(to) {
		return nil, apperrors.ErrInvalidDateRange
	}
	from, to = dates.Day(from), dates.Day(to)

	byDate := make(map[string][]model.ValuationRecord)
	err := s.valuationRepo.FindForPortfolios(
		portfolioIDs,
		from, to,
		func(record model.ValuationRecord) error {
			key := dates.Key(record.Date)
			byDate[key] = append(byDate[key], record)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	totals := []model.DailyTotal{}
	for _, day := range dates.Range(from, to) {
		records, ok := byDate[dates.Key(day)]
		if !ok {
			continue
		}
		total := model.DailyTotal{Date: dates.Key(day), IsComplete: true}
		for _, record := range records {
			total.TotalValueUSD += record.TotalValueUSD
			total.Portfolios++
			if !record.IsComplete {
				total.IsComplete = false
			}
		}
		total.TotalValueUSD = round(total.TotalValueUSD)
		totals = append(totals, total)
	}

	return totals, nil
}

// AggregateHistoryForUser aggregates across every non-archived portfolio a
// user owns.
func (s *ValuationService) AggregateHistoryForUser(userID string, from, to time.Time) ([]model.DailyTotal, error) {
	portfolios, err := s.portfolioRepo.GetPortfoliosByUser(userID)
	if err != nil {
		return nil, err
	}
	return s.AggregateHistory(portfolioIDs(portfolios), from, to)
}

// AggregateOverview aggregates across all active portfolios not excluded from
// the overview.
func (s *ValuationService) AggregateOverview(from, to time.Time) ([]model.DailyTotal, error) {
	portfolios, err := s.portfolioRepo.GetAllPortfolios(model.PortfolioFilter{})
	if err != nil {
		return nil, err
	}
	return s.AggregateHistory(portfolioIDs(portfolios), from, to)
}

func portfolioIDs(portfolios []model.Portfolio) []string {
	ids := make([]string, len(portfolios))
	for i, p := range portfolios {
		ids[i] = p.ID
	}
	return ids
}
