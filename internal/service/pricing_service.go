package service

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/fx"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/marketdata"
)

// FallbackWindowDays bounds the backward scan for the nearest prior trading
// day when a date has no close of its own.
const FallbackWindowDays = 30

// Resolver turns (symbol, date) pairs into USD prices via the market-data feed
// and the currency normalizer. Stateless itself; per-run state (symbol
// validity, fetched series) lives in a Session.
type Resolver struct {
	feed marketdata.Client
	fx   *fx.Service
	// maxConcurrent bounds parallel per-symbol fetches against the feed.
	maxConcurrent int
}

// NewResolver creates a price resolver. maxConcurrent values below 1 are
// raised to 1: price fetches must never fan out unbounded against the
// third-party feed.
func NewResolver(feed marketdata.Client, fxService *fx.Service, maxConcurrent int) *Resolver {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Resolver{
		feed:          feed,
		fx:            fxService,
		maxConcurrent: maxConcurrent,
	}
}

type symbolState int

const (
	symbolUnknown symbolState = iota
	symbolValid
	symbolInvalid
)

// symbolSeries is the cached USD price series for one symbol within a session.
// prices holds only nonzero closes, keyed by YYYY-MM-DD.
type symbolSeries struct {
	prices      map[string]float64
	from, to    time.Time
	currency    string
	unconverted bool
}

// Session is one resolver run: a reconciliation pass or a request. It caches
// symbol validity and fetched price series so a symbol is validated at most
// once and its series fetched at most once per range, no matter how many
// dates are resolved.
//
// A Session is safe for concurrent use by the bounded fan-out in ResolveBatch.
type Session struct {
	resolver *Resolver
	jobRates bool

	mu       sync.Mutex
	validity map[string]symbolState
	series   map[string]*symbolSeries
}

// NewSession creates a session that converts currencies through the
// request-scoped rate table.
func (r *Resolver) NewSession() *Session {
	return &Session{
		resolver: r,
		validity: make(map[string]symbolState),
		series:   make(map[string]*symbolSeries),
	}
}

// NewJobSession creates a session for callers without a request context
// (scheduled sweeps); it converts through the job rate table.
func (r *Resolver) NewJobSession() *Session {
	s := r.NewSession()
	s.jobRates = true
	return s
}

// Resolve resolves a (symbol, date) pair to a USD price through the fallback
// chain: exact nonzero close for the date, else the nearest prior nonzero
// close within FallbackWindowDays, else 0.
//
// A return of 0 means "unresolved": a documented, permanent outcome for that
// pair, never "worthless" and never an error. Upstream failures degrade to 0
// with a logged warning so batch jobs keep moving.
func (s *Session) Resolve(ctx context.Context, symbol string, date time.Time) float64 {
	if !s.ensureValid(ctx, symbol) {
		return 0
	}

	day := dates.Day(date)
	series := s.ensureSeries(ctx, symbol, day.AddDate(0, 0, -FallbackWindowDays), day)

	if price, ok := series.prices[dates.Key(day)]; ok {
		return price
	}

	// Nearest prior trading day with a nonzero close, bounded window.
	for back := 1; back <= FallbackWindowDays; back++ {
		if price, ok := series.prices[dates.Key(day.AddDate(0, 0, -back))]; ok {
			return price
		}
	}

	return 0
}

// PrimeRange fetches the symbol's price series for an inclusive date range in
// a single upstream call, extended backward by the fallback window so dates at
// the start of the range can still fall back to a prior close. Resolve calls
// inside the range then hit only the session cache.
func (s *Session) PrimeRange(ctx context.Context, symbol string, from, to time.Time) {
	if !s.ensureValid(ctx, symbol) {
		return
	}
	s.ensureSeries(ctx, symbol, dates.Day(from).AddDate(0, 0, -FallbackWindowDays), dates.Day(to))
}

// PrimeAll primes multiple symbols concurrently with bounded fan-out.
// Individual failures degrade to empty series; the batch always completes.
func (s *Session) PrimeAll(ctx context.Context, symbols []string, from, to time.Time) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolver.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			s.PrimeRange(ctx, symbol, from, to)
			return nil
		})
	}
	// Prime goroutines never return errors; degradation is per symbol.
	_ = g.Wait()
}

// ResolveBatch resolves many symbols for one date, fanning out with bounded
// concurrency and fanning in to a merged map. One failing symbol never aborts
// the batch; it simply contributes an unresolved 0.
func (s *Session) ResolveBatch(ctx context.Context, symbols []string, date time.Time) map[string]float64 {
	merged := make(map[string]float64, len(symbols))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolver.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			price := s.Resolve(ctx, symbol, date)
			mu.Lock()
			merged[symbol] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return merged
}

// Unconverted reports whether the symbol's prices are carried in their native
// currency because no USD rate was available. Callers use this to mark
// valuations as incomplete.
func (s *Session) Unconverted(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[symbol]
	return ok && series.unconverted
}

// ensureValid validates a symbol against the feed at most once per session.
// An invalid symbol short-circuits every subsequent resolve for it to 0
// without further upstream calls, bounding the cost of persistently bad
// tickers. Transient probe failures count as valid: the series fetch will
// degrade on its own if the feed stays down.
func (s *Session) ensureValid(ctx context.Context, symbol string) bool {
	s.mu.Lock()
	state := s.validity[symbol]
	if state == symbolUnknown {
		// Claim the probe before unlocking so concurrent resolvers of the
		// same symbol do not all hit the feed.
		s.validity[symbol] = symbolValid
	}
	s.mu.Unlock()

	if state != symbolUnknown {
		return state == symbolValid
	}

	_, err := s.resolver.feed.Quote(ctx, symbol)
	if err != nil && marketdata.IsSymbolNotFound(err) {
		log.Printf("WARN: symbol %s failed validation, resolving to 0 for this session: %v", symbol, err)
		s.mu.Lock()
		s.validity[symbol] = symbolInvalid
		s.mu.Unlock()
		return false
	}
	if err != nil {
		log.Printf("WARN: validation probe for %s failed transiently, continuing: %v", symbol, err)
	}

	return true
}

// ensureSeries returns the cached series for a symbol, fetching it from the
// feed when the requested window is not yet covered. A failed fetch caches an
// empty series for the window so the feed is not retried per date.
func (s *Session) ensureSeries(ctx context.Context, symbol string, from, to time.Time) *symbolSeries {
	s.mu.Lock()
	series, ok := s.series[symbol]
	if ok && !from.Before(series.from) && !to.After(series.to) {
		s.mu.Unlock()
		return series
	}
	if ok {
		from = dates.Min(from, series.from)
		if series.to.After(to) {
			to = series.to
		}
	}
	s.mu.Unlock()

	fetched := &symbolSeries{prices: make(map[string]float64), from: from, to: to}

	chart, err := s.resolver.feed.Chart(ctx, symbol, from, to)
	if err != nil {
		log.Printf("WARN: price series fetch for %s [%s..%s] failed, degrading to empty series: %v",
			symbol, dates.Key(from), dates.Key(to), err)
	} else {
		fetched.currency = chart.Currency
		rate, rateKnown := s.lookupRate(ctx, chart.Currency)
		if !rateKnown {
			// Deliberate degraded fallback: carry the raw quote rather than
			// fail the batch. The valuation is marked incomplete downstream.
			log.Printf("WARN: no USD rate for %s (%s), using unconverted prices", chart.Currency, symbol)
			fetched.unconverted = true
			rate = 1
		}
		for _, ind := range chart.Indicators {
			if ind.PriceClose > 0 {
				fetched.prices[dates.Key(ind.Date)] = ind.PriceClose * rate
			}
		}
	}

	s.mu.Lock()
	if existing, ok := s.series[symbol]; ok {
		// Merge older points fetched by a racing goroutine.
		for key, price := range existing.prices {
			if _, present := fetched.prices[key]; !present {
				fetched.prices[key] = price
			}
		}
		fetched.unconverted = fetched.unconverted || existing.unconverted
	}
	s.series[symbol] = fetched
	s.mu.Unlock()

	return fetched
}

func (s *Session) lookupRate(ctx context.Context, currency string) (float64, bool) {
	if s.jobRates {
		return s.resolver.fx.JobRate(ctx, currency)
	}
	return s.resolver.fx.Rate(ctx, currency)
}
