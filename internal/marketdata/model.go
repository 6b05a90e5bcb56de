package marketdata

import "time"

// Response represents the raw JSON response structure from the chart API.
// This type maps directly to the provider's chart response format, containing
// nested structures for metadata, timestamps, and price indicators.
//
// The structure includes:
//   - Chart.Result: Array of result objects (typically contains one element)
//   - Chart.Result[].Meta: Symbol metadata (name, currency, exchange)
//   - Chart.Result[].Timestamp: Unix timestamps for each data point
//   - Chart.Result[].Indicators: Price data arrays (open, close, high, low, volume)
//   - Chart.Error: Optional error message from the provider
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level payload of a chart API response.
type Chart struct {
	Result []Result    `json:"result"`
	Error  *ChartError `json:"error"`
}

// ChartError carries the provider's error code and description, present when a
// request fails at the API level (unknown symbol, bad range, throttling).
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is a single chart result: one symbol's metadata and its time series.
type Result struct {
	Meta       Meta    `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []QuoteBlock `json:"quote"`
	} `json:"indicators"`
}

// Meta holds symbol metadata returned alongside the price series. Currency is
// the native quote currency of the listing and drives USD normalization.
type Meta struct {
	Currency         string `json:"currency"`
	Symbol           string `json:"symbol"`
	ExchangeName     string `json:"exchangeName"`
	FullExchangeName string `json:"fullExchangeName"`
	LongName         string `json:"longName"`
	Shortname        string `json:"shortName"`
}

// QuoteBlock contains the parallel OHLCV arrays of a chart result. Entries may
// be null for non-trading days, hence the pointer element types.
type QuoteBlock struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// PriceChart represents a parsed and structured price chart.
// This is the application's internal representation after parsing the raw
// Response: symbol metadata plus a time-series of daily price points with
// proper time.Time dates.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators represents a single day's price data for a financial instrument.
// Each Indicators instance corresponds to one trading day and contains the
// standard OHLCV (Open, High, Low, Close, Volume) data. A zero PriceClose
// means the provider had no close for that day.
type Indicators struct {
	Date       time.Time
	PriceOpen  float64
	PriceClose float64
	Volume     int64
	PriceHigh  float64
	PriceLow   float64
}

// Quote is the latest available quote for a symbol in its native currency.
type Quote struct {
	Symbol   string  `json:"symbol"`
	Currency string  `json:"currency"`
	Price    float64 `json:"price"`
}
