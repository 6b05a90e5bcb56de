package handlers

import (
	"net/http"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/service"
)

// PortfolioHandler handles portfolio-related HTTP requests
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// PortfoliosResponse represents the Portfolios get response
type PortfoliosResponse struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	IsArchived          bool   `json:"is_archived"`
	ExcludeFromOverview bool   `json:"exclude_from_overview"`
}

// Portfolios gets basic portfolio information
func (h *PortfolioHandler) Portfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolioService.GetAllPortfolios()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolios", err.Error())
		return
	}

	response := make([]PortfoliosResponse, len(portfolios))
	for i, p := range portfolios {
		response[i] = PortfoliosResponse{
			ID:                  p.ID,
			UserID:              p.UserID,
			Name:                p.Name,
			Description:         p.Description,
			IsArchived:          p.IsArchived,
			ExcludeFromOverview: p.ExcludeFromOverview,
		}
	}

	respondJSON(w, http.StatusOK, response)
}
