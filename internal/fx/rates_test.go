package fx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/testutil"
)

// fakeClock steps time manually so TTL expiry is tested without sleeping.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestRate(t *testing.T) {
	ctx := context.Background()

	t.Run("USD is always exactly 1", func(t *testing.T) {
		// The identity rate must hold even when the provider is down, so it
		// never goes through the cache at all.
		provider := testutil.NewMockRateProvider().WithError(errors.New("upstream down"))
		service := NewService(provider, time.Hour)

		rate, ok := service.Rate(ctx, "USD")
		if !ok || rate != 1 {
			t.Errorf("Expected USD rate (1, true), got (%v, %v)", rate, ok)
		}
		if provider.Calls() != 0 {
			t.Errorf("Expected no provider calls for USD, got %d", provider.Calls())
		}
	})

	t.Run("known currency converts through the table", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		rate, ok := service.Rate(ctx, "EUR")
		if !ok || rate != 1.10 {
			t.Errorf("Expected EUR rate (1.10, true), got (%v, %v)", rate, ok)
		}
	})

	t.Run("unknown currency reports not known", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		if _, ok := service.Rate(ctx, "XYZ"); ok {
			t.Error("Expected unknown currency to report ok=false")
		}
	})
}

func TestRateTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("repeated lookups within TTL hit the cache", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		service.Rate(ctx, "EUR")
		service.Rate(ctx, "GBP")
		service.Rate(ctx, "EUR")

		if provider.Calls() != 1 {
			t.Errorf("Expected 1 provider call within TTL, got %d", provider.Calls())
		}
	})

	t.Run("lookup after TTL expiry refetches", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		service.Rate(ctx, "EUR")
		clock.Advance(61 * time.Minute)
		service.Rate(ctx, "EUR")

		if provider.Calls() != 2 {
			t.Errorf("Expected 2 provider calls across TTL boundary, got %d", provider.Calls())
		}
	})

	t.Run("refreshed table serves updated rates", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		service.Rate(ctx, "EUR")
		provider.WithRates(map[string]float64{"USD": 1, "EUR": 1.20})
		clock.Advance(2 * time.Hour)

		rate, ok := service.Rate(ctx, "EUR")
		if !ok || rate != 1.20 {
			t.Errorf("Expected refreshed EUR rate (1.20, true), got (%v, %v)", rate, ok)
		}
	})
}

func TestRateDegradedFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("provider outage degrades to USD-only table", func(t *testing.T) {
		provider := testutil.NewMockRateProvider().WithError(errors.New("rate API unreachable"))
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		if _, ok := service.Rate(ctx, "EUR"); ok {
			t.Error("Expected EUR to be unknown under the degraded table")
		}
		if rate, ok := service.Rate(ctx, "USD"); !ok || rate != 1 {
			t.Errorf("Expected USD to stay (1, true) under degradation, got (%v, %v)", rate, ok)
		}
		if !service.Degraded() {
			t.Error("Expected Degraded() to report true")
		}
	})

	t.Run("degraded table is cached for a full TTL window", func(t *testing.T) {
		// The whole point of caching the fallback is not to hammer a failing
		// provider on every lookup.
		provider := testutil.NewMockRateProvider().WithError(errors.New("rate API unreachable"))
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		service.Rate(ctx, "EUR")
		service.Rate(ctx, "EUR")
		service.Rate(ctx, "GBP")

		if provider.Calls() != 1 {
			t.Errorf("Expected 1 provider call while degraded, got %d", provider.Calls())
		}
	})

	t.Run("recovers on the next refresh after the outage", func(t *testing.T) {
		provider := testutil.NewMockRateProvider().WithError(errors.New("rate API unreachable"))
		clock := newFakeClock()
		service := NewServiceWithClock(provider, time.Hour, clock.Now)

		service.Rate(ctx, "EUR")
		provider.WithError(nil)
		clock.Advance(2 * time.Hour)

		rate, ok := service.Rate(ctx, "EUR")
		if !ok || rate != 1.10 {
			t.Errorf("Expected EUR rate after recovery (1.10, true), got (%v, %v)", rate, ok)
		}
		if service.Degraded() {
			t.Error("Expected Degraded() to clear after a successful refresh")
		}
	})
}

func TestJobRate(t *testing.T) {
	ctx := context.Background()

	t.Run("job table is cached independently of the session table", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		service.Rate(ctx, "EUR")
		service.JobRate(ctx, "EUR")

		// Two tables, two fetches: neither call site piggybacks on the other's
		// freshness window.
		if provider.Calls() != 2 {
			t.Errorf("Expected 2 provider calls for two independent tables, got %d", provider.Calls())
		}
	})

	t.Run("USD is 1 without touching the provider", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		rate, ok := service.JobRate(ctx, "USD")
		if !ok || rate != 1 {
			t.Errorf("Expected USD job rate (1, true), got (%v, %v)", rate, ok)
		}
		if provider.Calls() != 0 {
			t.Errorf("Expected no provider calls, got %d", provider.Calls())
		}
	})
}

func TestPairRate(t *testing.T) {
	ctx := context.Background()

	t.Run("cross rate derives through USD", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		rate, ok := service.PairRate(ctx, "EUR", "GBP")
		if !ok {
			t.Fatal("Expected EUR/GBP pair rate to be known")
		}
		expected := 1.10 / 1.25
		if rate != expected {
			t.Errorf("Expected EUR/GBP rate %v, got %v", expected, rate)
		}
	})

	t.Run("same currency is identity", func(t *testing.T) {
		provider := testutil.NewMockRateProvider().WithError(errors.New("upstream down"))
		service := NewService(provider, time.Hour)

		rate, ok := service.PairRate(ctx, "EUR", "EUR")
		if !ok || rate != 1 {
			t.Errorf("Expected identity pair rate (1, true), got (%v, %v)", rate, ok)
		}
	})

	t.Run("unknown leg reports not known", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		if _, ok := service.PairRate(ctx, "EUR", "XYZ"); ok {
			t.Error("Expected unknown pair to report ok=false")
		}
	})
}

func TestConvert(t *testing.T) {
	ctx := context.Background()

	t.Run("converts through the session table", func(t *testing.T) {
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		usd, ok := service.Convert(ctx, 200, "EUR")
		if !ok || usd != 220 {
			t.Errorf("Expected 200 EUR -> (220, true), got (%v, %v)", usd, ok)
		}
	})

	t.Run("unknown currency passes the amount through unchanged", func(t *testing.T) {
		// Degraded mode contract: the caller gets the native amount back and
		// decides how to mark the result, instead of receiving an error.
		provider := testutil.NewMockRateProvider()
		service := NewService(provider, time.Hour)

		amount, ok := service.Convert(ctx, 4242, "XYZ")
		if ok || amount != 4242 {
			t.Errorf("Expected unconverted passthrough (4242, false), got (%v, %v)", amount, ok)
		}
	})
}
