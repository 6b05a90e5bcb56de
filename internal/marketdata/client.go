// Package marketdata implements the client for the upstream market-data
// provider (a Yahoo-style chart API). The provider is sparse and unreliable by
// nature: symbols disappear, closes are null on non-trading days, and requests
// get throttled. Callers are expected to treat every failure as degradable.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
)

// Client is the interface consumed by the pricing layer. Implemented by
// FinanceClient for production and by testutil.MockFeedClient in tests.
type Client interface {
	// Chart fetches the daily price series for a symbol over an inclusive
	// date range, in the symbol's native currency.
	Chart(ctx context.Context, symbol string, startDate, endDate time.Time) (PriceChart, error)

	// Quote fetches the most recent available close for a symbol. Also used
	// as the per-session symbol validity probe: an unknown symbol returns
	// apperrors.ErrSymbolNotFound.
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// FinanceClient provides methods for fetching financial data from the market
// data provider's HTTP API. It wraps an HTTP client and provides convenient
// methods for querying price charts and quotes.
type FinanceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewFinanceClient creates a new market-data client for the given base URL.
//
// Parameters:
//   - baseURL: Provider endpoint, e.g. "https://query1.finance.yahoo.com"
//
// Returns:
//   - *FinanceClient: A new client instance ready for use
func NewFinanceClient(baseURL string) *FinanceClient {
	return &FinanceClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Chart fetches daily price data for a symbol within a specific date range.
// This method is used for historical backfilling: the reconciliation engine
// calls it once per symbol per range rather than once per day.
//
// The request uses the provider's period-based query format with Unix
// timestamps, providing precise control over the requested date range.
//
// Parameters:
//   - symbol: Ticker symbol (e.g., "AAPL", "MSFT")
//   - startDate: Beginning of date range (inclusive)
//   - endDate: End of date range (inclusive)
//
// Returns:
//   - PriceChart: Parsed chart with one Indicators entry per trading day
//   - error: apperrors.ErrSymbolNotFound for unknown symbols, otherwise an
//     error wrapping apperrors.ErrUpstreamUnavailable
func (c *FinanceClient) Chart(ctx context.Context, symbol string, startDate, endDate time.Time) (PriceChart, error) {
	// endDate+1d so the provider includes the end day's close.
	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL,
		symbol,
		startDate.UTC().Unix(),
		endDate.UTC().AddDate(0, 0, 1).Unix(),
	)
	result, err := c.query(ctx, url, symbol)
	if err != nil {
		return PriceChart{}, err
	}

	return ParseChart(result)
}

// Quote fetches the latest available close for a symbol using the provider's
// range-based query format (range=5d), which automatically selects the most
// recent trading days. The last nonzero close in the window is returned.
//
// Parameters:
//   - symbol: Ticker symbol (e.g., "AAPL", "MSFT")
//
// Returns:
//   - Quote: Symbol, native currency, and latest close
//   - error: apperrors.ErrSymbolNotFound for unknown symbols, otherwise an
//     error wrapping apperrors.ErrUpstreamUnavailable
func (c *FinanceClient) Quote(ctx context.Context, symbol string) (Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, symbol)
	result, err := c.query(ctx, url, symbol)
	if err != nil {
		return Quote{}, err
	}

	chart, err := ParseChart(result)
	if err != nil {
		return Quote{}, err
	}

	for i := len(chart.Indicators) - 1; i >= 0; i-- {
		if chart.Indicators[i].PriceClose > 0 {
			return Quote{
				Symbol:   chart.Symbol,
				Currency: chart.Currency,
				Price:    chart.Indicators[i].PriceClose,
			}, nil
		}
	}

	return Quote{}, fmt.Errorf("no usable close for symbol %s: %w", symbol, apperrors.ErrUpstreamUnavailable)
}

// ParseChart converts a raw chart API response into a structured price chart.
// This function extracts price data and metadata (symbol, currency, exchange)
// from the provider's response format.
//
// Null entries in the close array (non-trading days) become zero-valued
// Indicators; callers must treat a zero close as "no data", never as a price.
//
// Parameters:
//   - result: Raw response from the chart API
//
// Returns:
//   - PriceChart: Structured chart with indicators and metadata
//   - error: If data is missing, malformed, or arrays have mismatched lengths
func ParseChart(response Response) (PriceChart, error) {
	if len(response.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("empty chart result: %w", apperrors.ErrSymbolNotFound)
	}

	result := response.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned: %w", apperrors.ErrUpstreamUnavailable)
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned: %w", apperrors.ErrUpstreamUnavailable)
	}
	if len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths: %w", apperrors.ErrUpstreamUnavailable)
	}

	quote := result.Indicators.Quote[0]
	indicators := make([]Indicators, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		indicators[i].Date = time.Unix(ts, 0).UTC()
		indicators[i].PriceOpen = deref(quote.Open, i)
		indicators[i].PriceClose = deref(quote.Close, i)
		indicators[i].PriceHigh = deref(quote.High, i)
		indicators[i].PriceLow = deref(quote.Low, i)
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			indicators[i].Volume = *quote.Volume[i]
		}
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

// GetIndicatorForDate searches for price data matching a specific date.
// The method performs date-only comparison by truncating both the target and
// indicator dates to midnight UTC, ignoring time components.
//
// Parameters:
//   - target: The date to search for (time component is ignored)
//
// Returns:
//   - Indicators: The price data for the matching date
//   - bool: true if a match was found, false otherwise
func (c PriceChart) GetIndicatorForDate(target time.Time) (Indicators, bool) {
	targetDay := target.UTC().Truncate(24 * time.Hour)
	for _, ind := range c.Indicators {
		if ind.Date.UTC().Truncate(24 * time.Hour).Equal(targetDay) {
			return ind, true
		}
	}
	return Indicators{}, false
}

// query is an internal helper that executes HTTP requests to the chart API.
// It handles the common logic for making requests, reading responses, parsing
// JSON, and mapping API errors onto the application's error taxonomy.
//
// The method sets required headers:
//   - User-Agent: Mimics a browser to avoid API blocking
//   - Accept: Requests JSON response format
func (c *FinanceClient) query(ctx context.Context, url, symbol string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request failed for %s: %w: %w", symbol, apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Response{}, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("unexpected status %d for %s: %w", resp.StatusCode, symbol, apperrors.ErrUpstreamUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response for %s: %w", symbol, apperrors.ErrUpstreamUnavailable)
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, fmt.Errorf("failed to parse response for %s: %w", symbol, apperrors.ErrUpstreamUnavailable)
	}

	if response.Chart.Error != nil {
		if isNotFound(response.Chart.Error) {
			return response, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrSymbolNotFound)
		}
		return response, fmt.Errorf("provider error %s: %w", response.Chart.Error.Code, apperrors.ErrUpstreamUnavailable)
	}

	return response, nil
}

// isNotFound reports whether a provider error means the symbol does not exist,
// as opposed to a transient failure.
func isNotFound(e *ChartError) bool {
	code := strings.ToLower(e.Code)
	return code == "not found" || code == "not_found" || strings.Contains(strings.ToLower(e.Description), "no data found")
}

// deref safely dereferences the i-th element of a nullable float array,
// returning 0 for missing entries.
func deref(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// IsSymbolNotFound reports whether err marks a permanently invalid symbol.
func IsSymbolNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrSymbolNotFound)
}
