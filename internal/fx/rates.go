// Package fx normalizes foreign-currency amounts to USD through TTL-cached
// exchange-rate tables. Three caches are kept independently: pairwise lookups,
// a full table for request-scoped callers, and a separate full table for
// scheduled jobs that run without a caller session. The two full-table call
// sites have different availability assumptions, so they never share state.
package fx

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched rate table stays valid. Refresh is purely
// time-based; there is no manual invalidation.
const DefaultTTL = time.Hour

// cachedTable is one TTL-governed rate table. The zero value is stale.
type cachedTable struct {
	rates     map[string]float64
	fetchedAt time.Time
	degraded  bool
}

type cachedPair struct {
	rate      float64
	fetchedAt time.Time
}

// Service owns the exchange-rate caches. The clock is injectable so tests
// control TTL expiry without sleeping; caches never leak across instances.
type Service struct {
	provider RateProvider
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	session cachedTable
	job     cachedTable
	pairs   map[string]cachedPair
}

// NewService creates a Service with the real clock.
func NewService(provider RateProvider, ttl time.Duration) *Service {
	return NewServiceWithClock(provider, ttl, time.Now)
}

// NewServiceWithClock creates a Service with an injected clock. Used by tests
// to step time past the TTL deterministically.
func NewServiceWithClock(provider RateProvider, ttl time.Duration, now func() time.Time) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		provider: provider,
		ttl:      ttl,
		now:      now,
		pairs:    make(map[string]cachedPair),
	}
}

// Rate returns the rate-to-USD for a currency from the request-scoped table.
// Rate("USD") is always exactly 1, independent of upstream state. The second
// return value reports whether the rate is known; callers seeing false are
// expected to pass the amount through unconverted (degraded mode, not an
// error).
func (s *Service) Rate(ctx context.Context, currency string) (float64, bool) {
	if currency == "USD" {
		return 1, true
	}
	table := s.freshTable(ctx, &s.session)
	rate, ok := table[currency]
	return rate, ok
}

// JobRate is Rate for callers without a request session (scheduled sweeps).
// It is backed by its own cache so job traffic never competes with request
// traffic for freshness.
func (s *Service) JobRate(ctx context.Context, currency string) (float64, bool) {
	if currency == "USD" {
		return 1, true
	}
	table := s.freshTable(ctx, &s.job)
	rate, ok := table[currency]
	return rate, ok
}

// PairRate returns the conversion rate from one currency to another, cached
// per pair. Unknown currencies yield ok=false.
func (s *Service) PairRate(ctx context.Context, from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}

	key := from + "/" + to
	now := s.now()

	s.mu.Lock()
	cached, ok := s.pairs[key]
	s.mu.Unlock()
	if ok && now.Sub(cached.fetchedAt) < s.ttl {
		return cached.rate, true
	}

	table := s.freshTable(ctx, &s.session)
	fromUSD, okFrom := table[from]
	toUSD, okTo := table[to]
	if from == "USD" {
		fromUSD, okFrom = 1, true
	}
	if to == "USD" {
		toUSD, okTo = 1, true
	}
	if !okFrom || !okTo || toUSD == 0 {
		return 0, false
	}

	rate := fromUSD / toUSD
	s.mu.Lock()
	s.pairs[key] = cachedPair{rate: rate, fetchedAt: now}
	s.mu.Unlock()

	return rate, true
}

// Convert converts an amount in the given currency to USD using the
// request-scoped table. When the rate is unknown the amount is returned
// unchanged with ok=false; the caller decides whether to log the degradation.
func (s *Service) Convert(ctx context.Context, amount float64, currency string) (float64, bool) {
	rate, ok := s.Rate(ctx, currency)
	if !ok {
		return amount, false
	}
	return amount * rate, true
}

// freshTable returns the cached table, refreshing it when the TTL has lapsed.
// The fetch happens outside the lock: concurrent refreshes racing past an
// expired TTL are tolerated and the last writer wins, which is the strongest
// consistency this data needs within a TTL window.
func (s *Service) freshTable(ctx context.Context, slot *cachedTable) map[string]float64 {
	now := s.now()

	s.mu.Lock()
	if slot.rates != nil && now.Sub(slot.fetchedAt) < s.ttl {
		rates := slot.rates
		s.mu.Unlock()
		return rates
	}
	s.mu.Unlock()

	rates, err := s.provider.Table(ctx)
	degraded := false
	if err != nil {
		// Degrade to a USD-only table for a full TTL window. Conversions for
		// other currencies pass through unconverted until the next refresh.
		log.Printf("WARN: exchange rate refresh failed, falling back to USD-only table: %v", err)
		rates = map[string]float64{"USD": 1}
		degraded = true
	}

	s.mu.Lock()
	*slot = cachedTable{rates: rates, fetchedAt: now, degraded: degraded}
	s.mu.Unlock()

	return rates
}

// Degraded reports whether the request-scoped table is currently the USD-only
// fallback. Exposed for health endpoints.
func (s *Service) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.degraded
}

// String describes the cache state, useful in logs.
func (s *Service) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("fx cache: session=%d rates (degraded=%t), job=%d rates, pairs=%d",
		len(s.session.rates), s.session.degraded, len(s.job.rates), len(s.pairs))
}
