package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/api/handlers"
	custommiddleware "github.com/jverhoeven/portfolio-valuation-backend/internal/api/middleware"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/config"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	portfolioService *service.PortfolioService,
	valuationService *service.ValuationService,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
			valuationHandler := handlers.NewValuationHandler(valuationService)

			r.Get("/", portfolioHandler.Portfolios)
			r.Get("/history", valuationHandler.AggregatedHistory)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/reconcile", valuationHandler.Reconcile)
				r.Get("/history", valuationHandler.History)
				r.Delete("/valuations", valuationHandler.Invalidate)
			})
		})
	})

	return r
}
