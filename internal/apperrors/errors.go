package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSymbolNotFound indicates that the market-data provider does not know the symbol.
	// Distinct from ErrUpstreamUnavailable: a symbol failing with this error is treated
	// as permanently invalid for the rest of the resolver session.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrValuationNotFound indicates no valuation record for a portfolio/date combination.
	ErrValuationNotFound = errors.New("valuation record not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (start date after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Upstream errors represent failures of external data providers. The valuation
// engine never lets these abort a batch: they degrade through the price fallback
// chain or the {USD: 1} rate table instead.
var (
	// ErrUpstreamUnavailable indicates a network or provider failure on the
	// market-data feed (timeout, rate limit, malformed payload).
	ErrUpstreamUnavailable = errors.New("market data provider unavailable")

	// ErrRateUnavailable indicates the exchange-rate provider could not supply
	// a table or pair rate.
	ErrRateUnavailable = errors.New("exchange rate provider unavailable")
)

// Operation failure errors represent system-level failures when retrieving or
// processing data, surfaced by the HTTP layer.
var (
	ErrFailedToRetrievePortfolios = errors.New("failed to retrieve portfolios")
	ErrFailedToGetHistory         = errors.New("failed to get valuation history")
	ErrFailedToReconcile          = errors.New("failed to reconcile valuations")
	ErrFailedToInvalidate         = errors.New("failed to invalidate valuations")
)
