package model

import "time"

// ValuationRecord is a cached daily valuation for one portfolio, unique per
// (portfolio_id, date). A record is created lazily the first time a date is
// reconciled and only overwritten under an explicit force recompute.
//
// Absence of a record is meaningful: dates before a portfolio's first
// transaction, or dates where every position was closed out, have no record
// at all. "Not yet computed" and "computed to zero" stay distinguishable.
type ValuationRecord struct {
	ID            string    `json:"id"`
	PortfolioID   string    `json:"portfolioId"`
	Date          time.Time `json:"date"`
	TotalValueUSD float64   `json:"totalValueUsd"`
	// IsComplete is false when at least one held symbol priced to an
	// unresolved zero or an unconverted foreign-currency value that day.
	IsComplete bool      `json:"isComplete"`
	ComputedAt time.Time `json:"computedAt"`
}

// DailyTotal is the cross-portfolio aggregation of ValuationRecords for a
// single date. Portfolios with no record on the date contribute zero.
type DailyTotal struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	TotalValueUSD float64 `json:"totalValueUsd"`
	// Portfolios counts the records that contributed to the total.
	Portfolios int  `json:"portfolios"`
	IsComplete bool `json:"isComplete"`
}
