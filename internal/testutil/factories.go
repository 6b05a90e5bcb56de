package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

// CreatePortfolio inserts a portfolio owned by a default test user.
func CreatePortfolio(t *testing.T, db *sql.DB, name string) model.Portfolio {
	t.Helper()
	return CreatePortfolioForUser(t, db, "user-1", name)
}

// CreatePortfolioForUser inserts a portfolio for a specific user.
func CreatePortfolioForUser(t *testing.T, db *sql.DB, userID, name string) model.Portfolio {
	t.Helper()

	p := model.Portfolio{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
	}

	_, err := db.Exec(
		`INSERT INTO portfolio (id, user_id, name, description, is_archived, exclude_from_overview)
		 VALUES (?, ?, ?, ?, FALSE, FALSE)`,
		p.ID, p.UserID, p.Name, p.Description,
	)
	if err != nil {
		t.Fatalf("Failed to insert test portfolio: %v", err)
	}

	return p
}

// CreateTransaction inserts a ledger entry. The date is a YYYY-MM-DD string
// for readable test setups.
func CreateTransaction(t *testing.T, db *sql.DB, portfolioID, symbol, txType string, quantity, pricePerUnit float64, currency, date string) model.Transaction {
	t.Helper()

	day, err := dates.Parse(date)
	if err != nil {
		t.Fatalf("Invalid test transaction date %q: %v", date, err)
	}

	tx := model.Transaction{
		ID:           uuid.NewString(),
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		Type:         txType,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Currency:     currency,
		Date:         day,
	}

	_, err = db.Exec(
		`INSERT INTO asset_transaction (id, portfolio_id, symbol, type, quantity, price_per_unit, currency, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PortfolioID, tx.Symbol, tx.Type, tx.Quantity, tx.PricePerUnit, tx.Currency, day.Format(dates.Format),
	)
	if err != nil {
		t.Fatalf("Failed to insert test transaction: %v", err)
	}

	return tx
}

// Buy inserts a buy transaction in USD at 100 per unit.
func Buy(t *testing.T, db *sql.DB, portfolioID, symbol string, quantity float64, date string) model.Transaction {
	t.Helper()
	return CreateTransaction(t, db, portfolioID, symbol, model.TransactionBuy, quantity, 100, "USD", date)
}

// Sell inserts a sell transaction in USD at 100 per unit.
func Sell(t *testing.T, db *sql.DB, portfolioID, symbol string, quantity float64, date string) model.Transaction {
	t.Helper()
	return CreateTransaction(t, db, portfolioID, symbol, model.TransactionSell, quantity, 100, "USD", date)
}

// Date parses a YYYY-MM-DD string, failing the test on bad input.
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	day, err := dates.Parse(s)
	if err != nil {
		t.Fatalf("Invalid test date %q: %v", s, err)
	}
	return day
}
