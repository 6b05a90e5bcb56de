package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/apperrors"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/dates"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/model"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/service"
)

// ValuationHandler handles valuation-related HTTP requests: triggering
// reconciliation, reading cached history, aggregation, and cache invalidation.
type ValuationHandler struct {
	valuationService *service.ValuationService
}

// NewValuationHandler creates a new ValuationHandler
func NewValuationHandler(valuationService *service.ValuationService) *ValuationHandler {
	return &ValuationHandler{
		valuationService: valuationService,
	}
}

// ValuationResponse represents one cached daily valuation
type ValuationResponse struct {
	Date          string  `json:"date"`
	TotalValueUSD float64 `json:"totalValueUsd"`
	IsComplete    bool    `json:"isComplete"`
}

// Reconcile handles POST /api/portfolio/{id}/reconcile?from&to&force.
// It ensures cached valuations exist for the requested range and returns them.
func (h *ValuationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date parameter", err.Error())
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	records, err := h.valuationService.Reconcile(r.Context(), portfolioID, from, to, force)
	if err != nil {
		respondServiceError(w, "Failed to reconcile valuations", err)
		return
	}

	respondJSON(w, http.StatusOK, toValuationResponses(records))
}

// History handles GET /api/portfolio/{id}/history?from&to.
// Returns cached valuations only; no computation is triggered.
func (h *ValuationHandler) History(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date parameter", err.Error())
		return
	}

	records, err := h.valuationService.History(portfolioID, from, to)
	if err != nil {
		respondServiceError(w, "Failed to get valuation history", err)
		return
	}

	respondJSON(w, http.StatusOK, toValuationResponses(records))
}

// AggregatedHistory handles GET /api/portfolio/history?from&to[&user_id].
// Sums cached valuations per date across portfolios.
func (h *ValuationHandler) AggregatedHistory(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date parameter", err.Error())
		return
	}

	var totals []model.DailyTotal
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		totals, err = h.valuationService.AggregateHistoryForUser(userID, from, to)
	} else {
		totals, err = h.valuationService.AggregateOverview(from, to)
	}
	if err != nil {
		respondServiceError(w, "Failed to get aggregated history", err)
		return
	}

	respondJSON(w, http.StatusOK, totals)
}

// Invalidate handles DELETE /api/portfolio/{id}/valuations?from&to.
// Called after past transactions change so affected dates get recomputed.
func (h *ValuationHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "id")

	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date parameter", err.Error())
		return
	}

	deleted, err := h.valuationService.InvalidateRange(portfolioID, from, to)
	if err != nil {
		respondServiceError(w, "Failed to invalidate valuations", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func toValuationResponses(records []model.ValuationRecord) []ValuationResponse {
	response := make([]ValuationResponse, len(records))
	for i, record := range records {
		response[i] = ValuationResponse{
			Date:          dates.Key(record.Date),
			TotalValueUSD: record.TotalValueUSD,
			IsComplete:    record.IsComplete,
		}
	}
	return response
}

// respondServiceError maps service-layer sentinel errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPortfolioNotFound):
		respondError(w, http.StatusNotFound, message, err.Error())
	case errors.Is(err, apperrors.ErrInvalidDateRange):
		respondError(w, http.StatusBadRequest, message, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, message, err.Error())
	}
}
