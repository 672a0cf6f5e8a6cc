package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/agent"
	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/feedback"
	"github.com/stokhq/inventory-agent/internal/forecast"
	"github.com/stokhq/inventory-agent/internal/market"
	"github.com/stokhq/inventory-agent/internal/notify"
	"github.com/stokhq/inventory-agent/internal/repository"
	"github.com/stokhq/inventory-agent/pkg/database"
	"github.com/stokhq/inventory-agent/pkg/utils"
)

// One-shot scan for cron. Runs a single decision pass and exits, so
// schedules like "0 6 * * *" work without keeping the HTTP server around.
func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

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

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	skuRepo := repository.NewSKURepository(db.DB, logger)
	stockRepo := repository.NewStockRepository(db.DB, logger)
	salesRepo := repository.NewSalesRepository(db.DB, logger)
	supplierRepo := repository.NewSupplierRepository(db.DB, logger)
	skuSupplierRepo := repository.NewSKUSupplierRepository(db.DB, logger)
	actionRepo := repository.NewActionRepository(db.DB, logger)
	auditRepo := repository.NewAuditRepository(db.DB, logger)
	forecastRepo := repository.NewForecastCacheRepository(db.DB, logger)

	decisionAgent := agent.New(agent.Deps{
		SKUs:         skuRepo,
		Stocks:       stockRepo,
		Sales:        salesRepo,
		Suppliers:    supplierRepo,
		SKUSuppliers: skuSupplierRepo,
		Actions:      actionRepo,
		Audit:        auditRepo,
		Tx:           db,
		Market:       market.NewService(cfg.Market, logger),
		Learner:      feedback.NewLearner(actionRepo, auditRepo, cfg.Agent, logger),
		Forecaster:   forecast.NewEngine(forecastRepo, salesRepo, cfg.Forecast, logger),
		Notifier:     notify.NewMailer(cfg.Notify, logger),
	}, cfg.Agent, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	created, err := decisionAgent.Run(ctx)
	if err != nil {
		logger.Fatal("Agent run failed", zap.Error(err))
	}

	logger.Info("Agent run complete",
		zap.Int("actions_created", created),
		zap.Duration("elapsed", time.Since(start)))
}
