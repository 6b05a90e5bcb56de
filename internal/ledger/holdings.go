// Package ledger reconstructs per-symbol holdings from the append-only
// transaction log. The ledger layer guarantees that a sell never drives a
// position negative; that precondition is trusted here, not re-validated.
// This package only sums.
package ledger

import (
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

// Reconstruct replays the transaction log and returns the quantity held per
// symbol as of the given date. Only the date cutoff matters; the order of
// same-day transactions does not affect the sums.
//
// The result includes every symbol ever transacted up to asOf, including
// positions that have fallen to zero. Callers must filter through
// PositiveOnly before any pricing work: pricing a closed or negative position
// wastes an upstream fetch at best and produces a nonsensical value at worst.
func Reconstruct(transactions []model.Transaction, asOf time.Time) map[string]float64 {
	cutoff := dates.Day(asOf)
	holdings := make(map[string]float64)

	for _, tx := range transactions {
		if dates.Day(tx.Date).After(cutoff) {
			continue
		}
		holdings[tx.Symbol] += signedQuantity(tx)
	}

	return holdings
}

// PositiveOnly returns a copy of holdings with zero and negative positions
// dropped. This is the mandatory filter between reconstruction and pricing.
func PositiveOnly(holdings map[string]float64) map[string]float64 {
	positive := make(map[string]float64, len(holdings))
	for symbol, qty := range holdings {
		if qty > 0 {
			positive[symbol] = qty
		}
	}
	return positive
}

// Sweeper walks a date range in ascending order while advancing a single
// cursor over the ledger, maintaining running holdings incrementally. For D
// dates over T transactions this is O(D+T), versus O(D*T) for repeated full
// replays. The transactions slice must be sorted by date ascending and the
// dates passed to Advance must not decrease; the reconciliation orchestrator
// guarantees both.
type Sweeper struct {
	transactions []model.Transaction
	cursor       int
	holdings     map[string]float64
}

// NewSweeper creates a sweeper over a date-ascending transaction slice.
func NewSweeper(transactions []model.Transaction) *Sweeper {
	return &Sweeper{
		transactions: transactions,
		holdings:     make(map[string]float64),
	}
}

// Advance applies all transactions dated on or before asOf that have not been
// applied yet, then returns a snapshot of the running holdings. The returned
// map is a copy; callers may mutate it freely.
func (s *Sweeper) Advance(asOf time.Time) map[string]float64 {
	cutoff := dates.Day(asOf)
	for s.cursor < len(s.transactions) {
		tx := s.transactions[s.cursor]
		if dates.Day(tx.Date).After(cutoff) {
			break
		}
		s.holdings[tx.Symbol] += signedQuantity(tx)
		s.cursor++
	}

	snapshot := make(map[string]float64, len(s.holdings))
	for symbol, qty := range s.holdings {
		snapshot[symbol] = qty
	}
	return snapshot
}

func signedQuantity(tx model.Transaction) float64 {
	if tx.Type == model.TransactionSell {
		return -tx.Quantity
	}
	return tx.Quantity
}
