package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

// ValuationRepository provides data access methods for the portfolio_valuation
// table, the cache of per-date portfolio valuations maintained by the
// reconciliation orchestrator.
type ValuationRepository struct {
	db *sql.DB
}

// NewValuationRepository creates a new repository instance.
func NewValuationRepository(db *sql.DB) *ValuationRepository {
	return &ValuationRepository{db: db}
}

// FindByPortfolioAndRange retrieves valuation records for one portfolio within
// the inclusive date range, sorted by date ascending.
func (r *ValuationRepository) FindByPortfolioAndRange(portfolioID string, startDate, endDate time.Time) ([]model.ValuationRecord, error) {
	query := `
		SELECT id, portfolio_id, date, total_value_usd, is_complete, computed_at
		FROM portfolio_valuation
		WHERE portfolio_id = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, portfolioID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_valuation: %w", err)
	}
	defer rows.Close()

	return scanValuationRows(rows)
}

// FindForPortfolios streams valuation records for multiple portfolios within a
// date range, ordered by date ascending. The callback pattern lets the
// aggregation layer process records one at a time without holding the whole
// result set for large ranges.
//
// Returns an error if the query fails or if the callback returns an error.
func (r *ValuationRepository) FindForPortfolios(
	portfolioIDs []string,
	startDate, endDate time.Time,
	callback func(record model.ValuationRecord) error,
) error {
	if len(portfolioIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(portfolioIDs))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	query := `
		SELECT id, portfolio_id, date, total_value_usd, is_complete, computed_at
		FROM portfolio_valuation
		WHERE portfolio_id IN (` + strings.Join(placeholders, ",") + `)
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`

	args := make([]any, 0, len(portfolioIDs)+2)
	for _, id := range portfolioIDs {
		args = append(args, id)
	}
	args = append(args, startDate.Format("2006-01-02"))
	args = append(args, endDate.Format("2006-01-02"))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query portfolio_valuation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanValuationRow(rows)
		if err != nil {
			return err
		}
		if err := callback(record); err != nil {
			return err
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	return nil
}

// Upsert writes a valuation record under the (portfolio_id, date) uniqueness
// constraint. Concurrent reconciliations over overlapping ranges can race to
// write the same date; the ON CONFLICT clause makes the last writer win
// instead of surfacing a duplicate-key error. Both writers computed the record
// from the same ledger, so the overwrite is harmless.
func (r *ValuationRepository) Upsert(record model.ValuationRecord) error {
	query := `
		INSERT INTO portfolio_valuation (id, portfolio_id, date, total_value_usd, is_complete, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, date) DO UPDATE SET
			total_value_usd = excluded.total_value_usd,
			is_complete = excluded.is_complete,
			computed_at = excluded.computed_at
	`

	_, err := r.db.Exec(
		query,
		record.ID,
		record.PortfolioID,
		record.Date.Format("2006-01-02"),
		record.TotalValueUSD,
		record.IsComplete,
		record.ComputedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio_valuation: %w", err)
	}

	return nil
}

// DeleteRange removes all valuation records for a portfolio within the
// inclusive date range. Called by the CRUD layer after a past transaction is
// edited, so the affected dates get recomputed on the next reconciliation.
// Returns the number of deleted records.
func (r *ValuationRepository) DeleteRange(portfolioID string, startDate, endDate time.Time) (int64, error) {
	query := `
		DELETE FROM portfolio_valuation
		WHERE portfolio_id = ?
		AND date >= ?
		AND date <= ?
	`

	result, err := r.db.Exec(query, portfolioID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete from portfolio_valuation: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	return deleted, nil
}

func scanValuationRows(rows *sql.Rows) ([]model.ValuationRecord, error) {
	records := []model.ValuationRecord{}
	for rows.Next() {
		record, err := scanValuationRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func scanValuationRow(rows *sql.Rows) (model.ValuationRecord, error) {
	var record model.ValuationRecord
	var dateStr, computedAtStr string

	err := rows.Scan(
		&record.ID,
		&record.PortfolioID,
		&dateStr,
		&record.TotalValueUSD,
		&record.IsComplete,
		&computedAtStr,
	)
	if err != nil {
		return model.ValuationRecord{}, fmt.Errorf("failed to scan row: %w", err)
	}

	record.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.ValuationRecord{}, fmt.Errorf("failed to parse date: %w", err)
	}
	record.ComputedAt, err = ParseTime(computedAtStr)
	if err != nil {
		return model.ValuationRecord{}, fmt.Errorf("failed to parse computed_at: %w", err)
	}

	return record, nil
}
