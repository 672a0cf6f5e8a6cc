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

// SupplierRepository handles supplier database operations
type SupplierRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SupplierRepository = (*SupplierRepository)(nil)

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *sql.DB, logger *zap.Logger) *SupplierRepository {
	return &SupplierRepository{
		db:     db,
		logger: logger,
	}
}

const supplierColumns = `
	id, code, name, contact_email, avg_lead_time_days, on_time_rate,
	quality_rate, cost_variance_pct, rank, is_active, created_at, updated_at
`

// GetByID returns one supplier, or nil when it does not exist
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = ?`

	row := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, id)
	supplier, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get supplier", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return supplier, nil
}

// ListActive returns every active supplier
func (r *SupplierRepository) ListActive(ctx context.Context) ([]*models.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE is_active = 1 ORDER BY name`

	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active suppliers", zap.Error(err))
		return nil, fmt.Errorf("failed to list active suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

// UpdateRank writes back the engine-computed global rank
func (r *SupplierRepository) UpdateRank(ctx context.Context, id string, rank int) error {
	query := `UPDATE suppliers SET rank = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, query, rank, id); err != nil {
		r.logger.Error("Failed to update supplier rank", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update supplier rank: %w", err)
	}
	return nil
}

func scanSupplier(s scanner) (*models.Supplier, error) {
	var supplier models.Supplier
	var avgLeadTime, onTime, quality, costVar sql.NullFloat64
	var rank sql.NullInt64

	err := s.Scan(
		&supplier.ID,
		&supplier.Code,
		&supplier.Name,
		&supplier.ContactEmail,
		&avgLeadTime,
		&onTime,
		&quality,
		&costVar,
		&rank,
		&supplier.IsActive,
		&supplier.CreatedAt,
		&supplier.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	supplier.AvgLeadTimeDays = nullFloat(avgLeadTime)
	supplier.OnTimeRate = nullFloat(onTime)
	supplier.QualityRate = nullFloat(quality)
	supplier.CostVariancePct = nullFloat(costVar)
	if rank.Valid {
		v := int(rank.Int64)
		supplier.Rank = &v
	}
	return &supplier, nil
}

// SKUSupplierRepository handles sourcing link database operations
type SKUSupplierRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SKUSupplierRepository = (*SKUSupplierRepository)(nil)

// NewSKUSupplierRepository creates a new sourcing link repository
func NewSKUSupplierRepository(db *sql.DB, logger *zap.Logger) *SKUSupplierRepository {
	return &SKUSupplierRepository{
		db:     db,
		logger: logger,
	}
}

// ListBySKU returns the sourcing candidates for one SKU
func (r *SKUSupplierRepository) ListBySKU(ctx context.Context, skuID string) ([]*models.SKUSupplier, error) {
	query := `
		SELECT id, sku_id, supplier_id, unit_cost, lead_time_days, moq, is_preferred
		FROM sku_suppliers
		WHERE sku_id = ?
		ORDER BY is_preferred DESC, id
	`

	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query, skuID)
	if err != nil {
		r.logger.Error("Failed to list sku suppliers", zap.String("sku_id", skuID), zap.Error(err))
		return nil, fmt.Errorf("failed to list sku suppliers: %w", err)
	}
	defer rows.Close()

	var links []*models.SKUSupplier
	for rows.Next() {
		var link models.SKUSupplier
		var unitCost sql.NullFloat64
		var leadTime sql.NullInt64

		if err := rows.Scan(
			&link.ID,
			&link.SKUID,
			&link.SupplierID,
			&unitCost,
			&leadTime,
			&link.MOQ,
			&link.IsPreferred,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sku supplier: %w", err)
		}

		link.UnitCost = nullFloat(unitCost)
		if leadTime.Valid {
			v := int(leadTime.Int64)
			link.LeadTimeDays = &v
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
