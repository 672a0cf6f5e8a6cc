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

// SKURepository handles catalog item database operations
type SKURepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SKURepository = (*SKURepository)(nil)

// NewSKURepository creates a new SKU repository
func NewSKURepository(db *sql.DB, logger *zap.Logger) *SKURepository {
	return &SKURepository{
		db:     db,
		logger: logger,
	}
}

const skuColumns = `
	id, sku_code, name, category, unit_cost, unit_price,
	reorder_point, safety_stock, lead_time_days, moq, is_active,
	created_at, updated_at
`

// GetByID returns one SKU, or nil when it does not exist
func (r *SKURepository) GetByID(ctx context.Context, id string) (*models.SKU, error) {
	query := `SELECT ` + skuColumns + ` FROM skus WHERE id = ?`

	row := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, id)
	sku, err := scanSKU(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get sku", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get sku: %w", err)
	}
	return sku, nil
}

// ListActive returns every active catalog item
func (r *SKURepository) ListActive(ctx context.Context) ([]*models.SKU, error) {
	query := `SELECT ` + skuColumns + ` FROM skus WHERE is_active = 1 ORDER BY sku_code`

	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active skus", zap.Error(err))
		return nil, fmt.Errorf("failed to list active skus: %w", err)
	}
	defer rows.Close()

	var skus []*models.SKU
	for rows.Next() {
		sku, err := scanSKU(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sku: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSKU(s scanner) (*models.SKU, error) {
	var sku models.SKU
	err := s.Scan(
		&sku.ID,
		&sku.SKUCode,
		&sku.Name,
		&sku.Category,
		&sku.UnitCost,
		&sku.UnitPrice,
		&sku.ReorderPoint,
		&sku.SafetyStock,
		&sku.LeadTimeDays,
		&sku.MOQ,
		&sku.IsActive,
		&sku.CreatedAt,
		&sku.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sku, nil
}
