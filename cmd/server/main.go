package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jverhoeven/portfolio-valuation-backend/internal/api"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/config"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/database"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/fx"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/marketdata"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/repository"
	"github.com/jverhoeven/portfolio-valuation-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply schema migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	portfolioRepo := repository.NewPortfolioRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	valuationRepo := repository.NewValuationRepository(db)

	// Create external feed clients
	feedClient := marketdata.NewFinanceClient(cfg.MarketData.BaseURL)
	rateProvider := fx.NewHTTPRateProvider(cfg.FX.BaseURL)
	fxService := fx.NewService(rateProvider, cfg.FX.CacheTTL)

	// Create services
	systemService := service.NewSystemService(db)
	portfolioService := service.NewPortfolioService(portfolioRepo)
	resolver := service.NewResolver(feedClient, fxService, cfg.MarketData.FetchConcurrency)
	valuationService := service.NewValuationService(
		portfolioRepo,
		transactionRepo,
		valuationRepo,
		resolver,
	)

	// Start the scheduled reconciliation sweep
	sweepService := service.NewSweepService(valuationService, portfolioService, cfg.Sweep)
	if err := sweepService.Start(); err != nil {
		log.Fatalf("Failed to start reconciliation sweep: %v", err)
	}
	defer sweepService.Stop()

	// Create router
	router := api.NewRouter(systemService, portfolioService, valuationService, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
