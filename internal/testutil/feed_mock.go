package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/marketdata"
)

// MockFeedClient is a mock implementation of marketdata.Client for testing.
// It serves predefined per-symbol charts instead of making API calls and
// counts every upstream call so tests can assert the idempotence and
// validity-gate contracts.
type MockFeedClient struct {
	mu sync.Mutex

	// Charts maps symbol -> chart served by both Chart and Quote.
	Charts map[string]marketdata.PriceChart
	// InvalidSymbols fail with apperrors.ErrSymbolNotFound.
	InvalidSymbols map[string]bool
	// Err, when set, is returned by every call (transient upstream failure).
	Err error

	chartCalls int
	quoteCalls int
}

// NewMockFeedClient creates an empty mock feed.
func NewMockFeedClient() *MockFeedClient {
	return &MockFeedClient{
		Charts:         make(map[string]marketdata.PriceChart),
		InvalidSymbols: make(map[string]bool),
	}
}

// WithChart registers a chart for a symbol. closes maps YYYY-MM-DD to the
// closing price in the given currency; a zero close models a non-trading day.
func (m *MockFeedClient) WithChart(symbol, currency string, closes map[string]float64) *MockFeedClient {
	indicators := make([]marketdata.Indicators, 0, len(closes))
	for day, c := range closes {
		d, err := dates.Parse(day)
		if err != nil {
			panic(fmt.Sprintf("bad mock chart date %q: %v", day, err))
		}
		indicators = append(indicators, marketdata.Indicators{Date: d, PriceClose: c})
	}
	m.Charts[symbol] = marketdata.PriceChart{
		Symbol:     symbol,
		Currency:   currency,
		Indicators: indicators,
	}
	return m
}

// WithInvalidSymbol marks a symbol as unknown to the provider.
func (m *MockFeedClient) WithInvalidSymbol(symbol string) *MockFeedClient {
	m.InvalidSymbols[symbol] = true
	return m
}

// WithError configures the mock to fail every call with err.
func (m *MockFeedClient) WithError(err error) *MockFeedClient {
	m.Err = err
	return m
}

// Chart serves the registered chart restricted to [startDate, endDate].
func (m *MockFeedClient) Chart(_ context.Context, symbol string, startDate, endDate time.Time) (marketdata.PriceChart, error) {
	m.mu.Lock()
	m.chartCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return marketdata.PriceChart{}, m.Err
	}
	if m.InvalidSymbols[symbol] {
		return marketdata.PriceChart{}, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
	}

	chart, ok := m.Charts[symbol]
	if !ok {
		return marketdata.PriceChart{}, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
	}

	windowed := marketdata.PriceChart{Symbol: chart.Symbol, Currency: chart.Currency}
	for _, ind := range chart.Indicators {
		if !ind.Date.Before(dates.Day(startDate)) && !ind.Date.After(dates.Day(endDate)) {
			windowed.Indicators = append(windowed.Indicators, ind)
		}
	}
	return windowed, nil
}

// Quote serves the latest nonzero close of the registered chart.
func (m *MockFeedClient) Quote(_ context.Context, symbol string) (marketdata.Quote, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.mu.Unlock()

	if m.Err != nil {
		return marketdata.Quote{}, m.Err
	}
	if m.InvalidSymbols[symbol] {
		return marketdata.Quote{}, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
	}

	chart, ok := m.Charts[symbol]
	if !ok {
		return marketdata.Quote{}, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
	}

	var latest marketdata.Indicators
	for _, ind := range chart.Indicators {
		if ind.PriceClose > 0 && ind.Date.After(latest.Date) {
			latest = ind
		}
	}
	if latest.PriceClose == 0 {
		return marketdata.Quote{}, fmt.Errorf("no usable close for %s: %w", symbol, apperrors.ErrUpstreamUnavailable)
	}

	return marketdata.Quote{Symbol: symbol, Currency: chart.Currency, Price: latest.PriceClose}, nil
}

// Calls returns the total number of upstream calls made through the mock.
func (m *MockFeedClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chartCalls + m.quoteCalls
}

// ChartCalls returns the number of chart (series) fetches.
func (m *MockFeedClient) ChartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chartCalls
}

// QuoteCalls returns the number of quote (validation) probes.
func (m *MockFeedClient) QuoteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteCalls
}
