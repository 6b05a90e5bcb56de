package testutil

import (
	"context"
	"sync"
)

// MockRateProvider is a mock implementation of fx.RateProvider for testing.
type MockRateProvider struct {
	mu sync.Mutex

	// Rates is the table returned by Table. Maps currency -> rate to USD.
	Rates map[string]float64
	// Err, when set, makes Table fail (upstream outage).
	Err error

	calls int
}

// NewMockRateProvider creates a provider with a small default table.
func NewMockRateProvider() *MockRateProvider {
	return &MockRateProvider{
		Rates: map[string]float64{
			"USD": 1,
			"EUR": 1.10,
			"GBP": 1.25,
		},
	}
}

// WithRates replaces the rate table.
func (m *MockRateProvider) WithRates(rates map[string]float64) *MockRateProvider {
	m.Rates = rates
	return m
}

// WithError configures the provider to fail.
func (m *MockRateProvider) WithError(err error) *MockRateProvider {
	m.Err = err
	return m
}

// Table returns the configured rates or error.
func (m *MockRateProvider) Table(_ context.Context) (map[string]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	table := make(map[string]float64, len(m.Rates))
	for currency, rate := range m.Rates {
		table[currency] = rate
	}
	return table, nil
}

// Calls returns how many times Table was invoked.
func (m *MockRateProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
