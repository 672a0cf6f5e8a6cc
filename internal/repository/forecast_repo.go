package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
	"github.com/stokhq/inventory-agent/pkg/database"
)

// ForecastCacheRepository handles the per-SKU forecast cache
type ForecastCacheRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.ForecastCacheRepository = (*ForecastCacheRepository)(nil)

// NewForecastCacheRepository creates a new forecast cache repository
func NewForecastCacheRepository(db *sql.DB, logger *zap.Logger) *ForecastCacheRepository {
	return &ForecastCacheRepository{
		db:     db,
		logger: logger,
	}
}

// GetBySKU returns the cache row for one SKU, or nil when none exists
func (r *ForecastCacheRepository) GetBySKU(ctx context.Context, skuID string) (*models.ForecastCache, error) {
	query := `
		SELECT id, sku_id, forecast_json, model_used, accuracy_pct, computed_at, valid_until
		FROM forecast_cache
		WHERE sku_id = ?
	`

	var entry models.ForecastCache
	var accuracy sql.NullFloat64
	err := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, skuID).Scan(
		&entry.ID,
		&entry.SKUID,
		&entry.ForecastRaw,
		&entry.ModelUsed,
		&accuracy,
		&entry.ComputedAt,
		&entry.ValidUntil,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get forecast cache", zap.String("sku_id", skuID), zap.Error(err))
		return nil, fmt.Errorf("failed to get forecast cache: %w", err)
	}

	entry.AccuracyPct = nullFloat(accuracy)
	return &entry, nil
}

// Upsert writes the single cache row for a SKU, overwriting any previous
// forecast
func (r *ForecastCacheRepository) Upsert(ctx context.Context, entry *models.ForecastCache) error {
	query := `
		INSERT INTO forecast_cache (
			id, sku_id, forecast_json, model_used, accuracy_pct, computed_at, valid_until
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku_id) DO UPDATE SET
			forecast_json = excluded.forecast_json,
			model_used = excluded.model_used,
			accuracy_pct = excluded.accuracy_pct,
			computed_at = excluded.computed_at,
			valid_until = excluded.valid_until
	`

	_, err := database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.SKUID,
		entry.ForecastRaw,
		entry.ModelUsed,
		entry.AccuracyPct,
		entry.ComputedAt,
		entry.ValidUntil,
	)
	if err != nil {
		r.logger.Error("Failed to upsert forecast cache", zap.String("sku_id", entry.SKUID), zap.Error(err))
		return fmt.Errorf("failed to upsert forecast cache: %w", err)
	}
	return nil
}

// InvalidateAll clears every cache row
func (r *ForecastCacheRepository) InvalidateAll(ctx context.Context) error {
	if _, err := database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, `DELETE FROM forecast_cache`); err != nil {
		r.logger.Error("Failed to invalidate forecast cache", zap.Error(err))
		return fmt.Errorf("failed to invalidate forecast cache: %w", err)
	}
	return nil
}
