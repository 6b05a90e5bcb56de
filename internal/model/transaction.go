package model

import "time"

// Transaction types recorded in the ledger.
const (
	TransactionBuy  = "buy"
	TransactionSell = "sell"
)

// Transaction represents a single buy or sell entry in the append-only ledger.
// Transactions are created and edited by the CRUD layer; the valuation engine
// only ever reads them.
type Transaction struct {
	ID           string    `json:"id"`
	PortfolioID  string    `json:"portfolioId"`
	Symbol       string    `json:"symbol"`
	Type         string    `json:"type"`
	Quantity     float64   `json:"quantity"`
	PricePerUnit float64   `json:"pricePerUnit"`
	Currency     string    `json:"currency"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
