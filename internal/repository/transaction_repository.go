package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

// TransactionRepository provides read-only access to the asset_transaction
// ledger. The valuation engine never mutates or deletes transactions; writes
// belong to the CRUD layer.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetTransactions retrieves the full transaction log for a portfolio, sorted
// by date ascending. The complete history is always loaded regardless of the
// date range being valued, because holdings on any date depend on all prior
// transactions.
func (r *TransactionRepository) GetTransactions(portfolioID string) ([]model.Transaction, error) {
	query := `
		SELECT id, portfolio_id, symbol, type, quantity, price_per_unit, currency, date, created_at
		FROM asset_transaction
		WHERE portfolio_id = ?
		ORDER BY date ASC, created_at ASC
	`

	rows, err := r.db.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		var dateStr, createdAtStr string
		var t model.Transaction

		err := rows.Scan(
			&t.ID,
			&t.PortfolioID,
			&t.Symbol,
			&t.Type,
			&t.Quantity,
			&t.PricePerUnit,
			&t.Currency,
			&dateStr,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset_transaction table results: %w", err)
		}

		t.Date, err = ParseTime(dateStr)
		if err != nil || t.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset_transaction table: %w", err)
	}

	return transactions, nil
}

// GetOldestTransactionDate finds the date of the earliest transaction for a
// portfolio. This marks the portfolio's inception: no valuation record can
// exist before it.
//
// Returns time.Time{} (zero value) if the portfolio has no transactions.
func (r *TransactionRepository) GetOldestTransactionDate(portfolioID string) time.Time {
	var oldestDateStr sql.NullString

	query := `SELECT MIN(date) FROM asset_transaction WHERE portfolio_id = ?`

	err := r.db.QueryRow(query, portfolioID).Scan(&oldestDateStr)
	if err != nil || !oldestDateStr.Valid {
		return time.Time{}
	}

	oldestDate, err := ParseTime(oldestDateStr.String)
	if err != nil {
		return time.Time{}
	}

	return oldestDate
}
