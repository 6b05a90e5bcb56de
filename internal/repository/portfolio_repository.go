package repository

import (
	"database/sql"
	"fmt"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio table.
type PortfolioRepository struct {
	db *sql.DB
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

const portfolioColumns = `id, user_id, name, description, is_archived, exclude_from_overview`

// GetPortfolio retrieves a single portfolio by ID.
// Returns apperrors.ErrPortfolioNotFound if no portfolio exists with the given ID.
func (r *PortfolioRepository) GetPortfolio(portfolioID string) (model.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolio WHERE id = ?`

	var p model.Portfolio
	err := r.db.QueryRow(query, portfolioID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.IsArchived,
		&p.ExcludeFromOverview,
	)
	if err == sql.ErrNoRows {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to query portfolio table: %w", err)
	}

	return p, nil
}

// GetAllPortfolios retrieves portfolios matching the filter.
// Archived and overview-excluded portfolios are skipped unless the filter
// includes them.
func (r *PortfolioRepository) GetAllPortfolios(filter model.PortfolioFilter) ([]model.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolio WHERE 1=1`
	if !filter.IncludeArchived {
		query += ` AND is_archived = FALSE`
	}
	if !filter.IncludeExcluded {
		query += ` AND exclude_from_overview = FALSE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}
	for rows.Next() {
		var p model.Portfolio
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Description,
			&p.IsArchived,
			&p.ExcludeFromOverview,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}

// GetPortfoliosByUser retrieves every non-archived portfolio owned by a user.
// Used by cross-portfolio aggregation.
func (r *PortfolioRepository) GetPortfoliosByUser(userID string) ([]model.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolio WHERE user_id = ? AND is_archived = FALSE ORDER BY name ASC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}
	for rows.Next() {
		var p model.Portfolio
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Description,
			&p.IsArchived,
			&p.ExcludeFromOverview,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio table results: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}
