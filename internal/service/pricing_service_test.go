package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/fx"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/testutil"
)

func newTestResolver(feed *testutil.MockFeedClient, rates *testutil.MockRateProvider) *Resolver {
	return NewResolver(feed, fx.NewService(rates, time.Hour), 4)
}

func TestSessionResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("exact close for a trading day", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("AAPL", "USD", map[string]float64{
			"2024-03-01": 100,
			"2024-03-04": 110,
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		price := session.Resolve(ctx, "AAPL", testutil.Date(t, "2024-03-04"))
		if price != 110 {
			t.Errorf("Expected exact close 110, got %v", price)
		}
	})

	t.Run("weekend falls back to the prior trading day", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("AAPL", "USD", map[string]float64{
			"2024-03-01": 100, // Friday
			"2024-03-04": 110, // Monday
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		// Saturday and Sunday both resolve to Friday's close, not Monday's.
		for _, day := range []string{"2024-03-02", "2024-03-03"} {
			if price := session.Resolve(ctx, "AAPL", testutil.Date(t, day)); price != 100 {
				t.Errorf("Expected %s to fall back to 100, got %v", day, price)
			}
		}
	})

	t.Run("gap beyond the fallback window resolves to 0", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("AAPL", "USD", map[string]float64{
			"2024-03-01": 100,
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		// 2024-05-01 is more than 30 days past the only close; the scan is
		// bounded, so the stale price must not leak forward.
		if price := session.Resolve(ctx, "AAPL", testutil.Date(t, "2024-05-01")); price != 0 {
			t.Errorf("Expected 0 beyond the fallback window, got %v", price)
		}
	})

	t.Run("zero close counts as a non-trading day", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("AAPL", "USD", map[string]float64{
			"2024-03-01": 100,
			"2024-03-04": 0, // provider had no usable close
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		if price := session.Resolve(ctx, "AAPL", testutil.Date(t, "2024-03-04")); price != 100 {
			t.Errorf("Expected zero close to fall back to 100, got %v", price)
		}
	})
}

func TestSessionSymbolValidity(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid symbol costs one upstream call per session", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithInvalidSymbol("FAKE123")
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		// A year of resolves against a bad ticker must short-circuit after the
		// single validation probe.
		day := testutil.Date(t, "2023-01-01")
		for i := 0; i < 365; i++ {
			if price := session.Resolve(ctx, "FAKE123", day.AddDate(0, 0, i)); price != 0 {
				t.Fatalf("Expected invalid symbol to resolve to 0, got %v", price)
			}
		}

		if feed.Calls() != 1 {
			t.Errorf("Expected exactly 1 upstream call for an invalid symbol, got %d", feed.Calls())
		}
		if feed.ChartCalls() != 0 {
			t.Errorf("Expected no series fetches for an invalid symbol, got %d", feed.ChartCalls())
		}
	})

	t.Run("validity is per session, not per resolver", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithInvalidSymbol("FAKE123")
		resolver := newTestResolver(feed, testutil.NewMockRateProvider())

		resolver.NewSession().Resolve(ctx, "FAKE123", testutil.Date(t, "2024-03-01"))
		resolver.NewSession().Resolve(ctx, "FAKE123", testutil.Date(t, "2024-03-01"))

		// A symbol can be listed later; each run re-checks once.
		if feed.QuoteCalls() != 2 {
			t.Errorf("Expected one validation probe per session, got %d", feed.QuoteCalls())
		}
	})
}

func TestSessionUpstreamFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("feed outage degrades to 0 without per-date retries", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().
			WithChart("AAPL", "USD", map[string]float64{"2024-03-01": 100}).
			WithError(errors.New("feed unreachable"))
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		day := testutil.Date(t, "2024-03-01")
		for i := 0; i < 5; i++ {
			if price := session.Resolve(ctx, "AAPL", day); price != 0 {
				t.Fatalf("Expected 0 during feed outage, got %v", price)
			}
		}

		// One failed probe plus one failed series fetch; the empty series is
		// cached so the loop above never hits the feed again.
		if feed.ChartCalls() != 1 {
			t.Errorf("Expected 1 series fetch during outage, got %d", feed.ChartCalls())
		}
	})
}

func TestSessionSeriesCache(t *testing.T) {
	ctx := context.Background()

	t.Run("primed range resolves from cache", func(t *testing.T) {
		closes := map[string]float64{}
		day := testutil.Date(t, "2024-01-01")
		for i := 0; i < 90; i++ {
			closes[day.AddDate(0, 0, i).Format("2006-01-02")] = 100 + float64(i)
		}
		feed := testutil.NewMockFeedClient().WithChart("AAPL", "USD", closes)
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		from, to := testutil.Date(t, "2024-01-01"), testutil.Date(t, "2024-03-30")
		session.PrimeRange(ctx, "AAPL", from, to)
		for i := 0; i < 90; i++ {
			session.Resolve(ctx, "AAPL", from.AddDate(0, 0, i))
		}

		if feed.ChartCalls() != 1 {
			t.Errorf("Expected 1 series fetch for a primed range, got %d", feed.ChartCalls())
		}
		if feed.QuoteCalls() != 1 {
			t.Errorf("Expected 1 validation probe, got %d", feed.QuoteCalls())
		}
	})

	t.Run("PrimeAll fetches once per symbol", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().
			WithChart("AAPL", "USD", map[string]float64{"2024-03-01": 100}).
			WithChart("MSFT", "USD", map[string]float64{"2024-03-01": 400}).
			WithChart("GOOG", "USD", map[string]float64{"2024-03-01": 150})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		symbols := []string{"AAPL", "MSFT", "GOOG"}
		session.PrimeAll(ctx, symbols, testutil.Date(t, "2024-03-01"), testutil.Date(t, "2024-03-10"))
		session.ResolveBatch(ctx, symbols, testutil.Date(t, "2024-03-05"))

		if feed.ChartCalls() != 3 {
			t.Errorf("Expected 1 series fetch per symbol, got %d", feed.ChartCalls())
		}
	})

	t.Run("ResolveBatch merges all symbols", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().
			WithChart("AAPL", "USD", map[string]float64{"2024-03-01": 100}).
			WithChart("MSFT", "USD", map[string]float64{"2024-03-01": 400}).
			WithInvalidSymbol("FAKE123")
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		prices := session.ResolveBatch(ctx, []string{"AAPL", "MSFT", "FAKE123"}, testutil.Date(t, "2024-03-01"))

		if len(prices) != 3 {
			t.Fatalf("Expected 3 entries in the merged map, got %d", len(prices))
		}
		if prices["AAPL"] != 100 || prices["MSFT"] != 400 {
			t.Errorf("Expected resolved prices for valid symbols, got %v", prices)
		}
		// The bad symbol contributes an unresolved 0 instead of failing the batch.
		if prices["FAKE123"] != 0 {
			t.Errorf("Expected 0 for invalid symbol, got %v", prices["FAKE123"])
		}
	})
}

func TestSessionCurrencyNormalization(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign close converts to USD", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("ASML.AS", "EUR", map[string]float64{
			"2024-03-01": 600,
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		price := session.Resolve(ctx, "ASML.AS", testutil.Date(t, "2024-03-01"))
		if price != 660 { // 600 EUR at 1.10
			t.Errorf("Expected 660 USD, got %v", price)
		}
		if session.Unconverted("ASML.AS") {
			t.Error("Expected converted series not to be flagged unconverted")
		}
	})

	t.Run("missing rate carries the raw quote and flags it", func(t *testing.T) {
		feed := testutil.NewMockFeedClient().WithChart("7203.T", "JPY", map[string]float64{
			"2024-03-01": 3000,
		})
		session := newTestResolver(feed, testutil.NewMockRateProvider()).NewSession()

		price := session.Resolve(ctx, "7203.T", testutil.Date(t, "2024-03-01"))
		if price != 3000 {
			t.Errorf("Expected raw quote 3000 when no rate is available, got %v", price)
		}
		if !session.Unconverted("7203.T") {
			t.Error("Expected series without a USD rate to be flagged unconverted")
		}
	})
}
