package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/agent"
	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/feedback"
	"github.com/stokhq/inventory-agent/internal/forecast"
	"github.com/stokhq/inventory-agent/internal/handlers"
	"github.com/stokhq/inventory-agent/internal/market"
	"github.com/stokhq/inventory-agent/internal/notify"
	"github.com/stokhq/inventory-agent/internal/podoc"
	"github.com/stokhq/inventory-agent/internal/repository"
	"github.com/stokhq/inventory-agent/internal/review"
	"github.com/stokhq/inventory-agent/internal/supplier"
	"github.com/stokhq/inventory-agent/pkg/database"
	"github.com/stokhq/inventory-agent/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting STOK inventory decision engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create necessary directories
	if err := os.MkdirAll(cfg.PurchaseOrder.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	// Initialize repositories
	skuRepo := repository.NewSKURepository(db.DB, logger)
	stockRepo := repository.NewStockRepository(db.DB, logger)
	salesRepo := repository.NewSalesRepository(db.DB, logger)
	supplierRepo := repository.NewSupplierRepository(db.DB, logger)
	skuSupplierRepo := repository.NewSKUSupplierRepository(db.DB, logger)
	actionRepo := repository.NewActionRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)
	forecastRepo := repository.NewForecastCacheRepository(db.DB, logger)

	// Initialize domain services
	forecastEngine := forecast.NewEngine(forecastRepo, salesRepo, cfg.Forecast, logger)
	marketService := market.NewService(cfg.Market, logger)
	learner := feedback.NewLearner(actionRepo, auditRepo, cfg.Agent, logger)
	ranker := supplier.NewRanker(supplierRepo, logger)
	mailer := notify.NewMailer(cfg.Notify, logger)
	poGenerator := podoc.NewGenerator(cfg.PurchaseOrder, logger)

	decisionAgent := agent.New(agent.Deps{
		SKUs:         skuRepo,
		Stocks:       stockRepo,
		Sales:        salesRepo,
		Suppliers:    supplierRepo,
		SKUSuppliers: skuSupplierRepo,
		Actions:      actionRepo,
		Audit:        auditRepo,
		Tx:           db,
		Market:       marketService,
		Learner:      learner,
		Forecaster:   forecastEngine,
		Notifier:     mailer,
	}, cfg.Agent, logger)

	reviewService := review.NewService(
		actionRepo,
		skuRepo,
		supplierRepo,
		auditRepo,
		db,
		poGenerator,
		mailer,
		logger,
	)

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize HTTP router
	h := handlers.NewHandlers(
		decisionAgent,
		reviewService,
		forecastEngine,
		ranker,
		actionRepo,
		skuRepo,
		supplierRepo,
		logger,
	)
	router := handlers.NewRouter(h, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
