package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
	"github.com/stokhq/inventory-agent/pkg/database"
)

// StockRepository handles stock level database operations
type StockRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.StockRepository = (*StockRepository)(nil)

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sql.DB, logger *zap.Logger) *StockRepository {
	return &StockRepository{
		db:     db,
		logger: logger,
	}
}

// GetBySKU returns the stock position for one SKU, or nil when the SKU has
// never had stock recorded
func (r *StockRepository) GetBySKU(ctx context.Context, skuID string) (*models.StockLevel, error) {
	query := `
		SELECT id, sku_id, location, quantity, last_updated
		FROM stock_levels
		WHERE sku_id = ?
	`

	var level models.StockLevel
	err := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, skuID).Scan(
		&level.ID,
		&level.SKUID,
		&level.Location,
		&level.Quantity,
		&level.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get stock level", zap.String("sku_id", skuID), zap.Error(err))
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}
	return &level, nil
}

// SalesRepository handles sales history database operations
type SalesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SalesRepository = (*SalesRepository)(nil)

// NewSalesRepository creates a new sales repository
func NewSalesRepository(db *sql.DB, logger *zap.Logger) *SalesRepository {
	return &SalesRepository{
		db:     db,
		logger: logger,
	}
}

const salesColumns = `id, sku_id, date, quantity_sold, revenue, channel, created_at`

// ListBySKU returns the full sales history for one SKU in date order
func (r *SalesRepository) ListBySKU(ctx context.Context, skuID string) ([]*models.SalesRecord, error) {
	query := `SELECT ` + salesColumns + ` FROM sales_history WHERE sku_id = ? ORDER BY date`
	return r.list(ctx, query, skuID)
}

// ListBySKUSince returns sales at or after the cutoff in date order
func (r *SalesRepository) ListBySKUSince(ctx context.Context, skuID string, since time.Time) ([]*models.SalesRecord, error) {
	query := `SELECT ` + salesColumns + ` FROM sales_history WHERE sku_id = ? AND date >= ? ORDER BY date`
	return r.list(ctx, query, skuID, since)
}

func (r *SalesRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SalesRecord, error) {
	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list sales", zap.Error(err))
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var records []*models.SalesRecord
	for rows.Next() {
		var rec models.SalesRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SKUID,
			&rec.Date,
			&rec.QuantitySold,
			&rec.Revenue,
			&rec.Channel,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
