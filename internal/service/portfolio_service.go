package service

import (
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/repository"
)

// PortfolioService handles portfolio-related business logic operations.
// Portfolio CRUD itself lives in the surrounding application; this service
// only exposes the reads the valuation surface needs.
type PortfolioService struct {
	portfolioRepo *repository.PortfolioRepository
}

// NewPortfolioService creates a new PortfolioService with the provided repository.
func NewPortfolioService(portfolioRepo *repository.PortfolioRepository) *PortfolioService {
	return &PortfolioService{portfolioRepo: portfolioRepo}
}

// GetPortfolio retrieves a single portfolio by ID.
func (s *PortfolioService) GetPortfolio(portfolioID string) (model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolio(portfolioID)
}

// GetAllPortfolios retrieves all active portfolios.
func (s *PortfolioService) GetAllPortfolios() ([]model.Portfolio, error) {
	return s.portfolioRepo.GetAllPortfolios(model.PortfolioFilter{IncludeArchived: true, IncludeExcluded: true})
}

// GetActivePortfolios retrieves non-archived portfolios included in the
// overview, the set swept by the scheduled reconciliation job.
func (s *PortfolioService) GetActivePortfolios() ([]model.Portfolio, error) {
	return s.portfolioRepo.GetAllPortfolios(model.PortfolioFilter{})
}
