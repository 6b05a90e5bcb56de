package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
)

// RateProvider supplies a full USD-based exchange-rate table. Implemented by
// HTTPRateProvider for production and by testutil.MockRateProvider in tests.
type RateProvider interface {
	// Table returns rate-to-USD per currency code. Table["USD"] is 1.
	Table(ctx context.Context) (map[string]float64, error)
}

// HTTPRateProvider fetches exchange rates from an open.er-api.com style
// endpoint (GET {base}/latest/USD).
type HTTPRateProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRateProvider creates a rate provider for the given base URL.
func NewHTTPRateProvider(baseURL string) *HTTPRateProvider {
	return &HTTPRateProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// rateResponse mirrors the provider's JSON payload. Rates are quoted as
// USD -> currency and inverted into rate-to-USD before returning.
type rateResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Table fetches the latest USD-based rate table and inverts it to rate-to-USD.
func (p *HTTPRateProvider) Table(ctx context.Context) (map[string]float64, error) {
	url := p.baseURL + "/latest/USD"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate request failed: %w: %w", apperrors.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, apperrors.ErrRateUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate response: %w", apperrors.ErrRateUnavailable)
	}

	var payload rateResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse rate response: %w", apperrors.ErrRateUnavailable)
	}

	if payload.Result != "success" || len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rate provider returned %q: %w", payload.Result, apperrors.ErrRateUnavailable)
	}

	table := make(map[string]float64, len(payload.Rates))
	for currency, usdToCurrency := range payload.Rates {
		if usdToCurrency > 0 {
			table[currency] = 1 / usdToCurrency
		}
	}
	table["USD"] = 1

	return table, nil
}
