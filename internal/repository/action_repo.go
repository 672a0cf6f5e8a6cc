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

// ActionRepository handles pending action database operations
type ActionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.ActionRepository = (*ActionRepository)(nil)

// NewActionRepository creates a new action repository
func NewActionRepository(db *sql.DB, logger *zap.Logger) *ActionRepository {
	return &ActionRepository{
		db:     db,
		logger: logger,
	}
}

const actionColumns = `
	id, sku_id, type, priority, title, justification, risks, alternatives,
	recommended_qty, recommended_value, supplier_id, confidence_score,
	status, metadata, created_at, reviewed_at, reviewed_by
`

// Create persists a new pending action
func (r *ActionRepository) Create(ctx context.Context, action *models.PendingAction) error {
	metadata, err := action.MarshalMetadata()
	if err != nil {
		return fmt.Errorf("failed to marshal action metadata: %w", err)
	}

	query := `
		INSERT INTO pending_actions (
			id, sku_id, type, type_family, priority, title, justification,
			risks, alternatives, recommended_qty, recommended_value,
			supplier_id, confidence_score, status, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, query,
		action.ID,
		action.SKUID,
		action.Type,
		models.TypeFamily(action.Type),
		action.Priority,
		action.Title,
		action.Justification,
		action.Risks,
		action.Alternatives,
		action.RecommendedQty,
		action.RecommendedValue,
		action.SupplierID,
		action.ConfidenceScore,
		action.Status,
		metadata,
		action.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create action", zap.String("sku_id", action.SKUID), zap.Error(err))
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

// GetByID returns one action, or nil when it does not exist
func (r *ActionRepository) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	query := `SELECT ` + actionColumns + ` FROM pending_actions WHERE id = ?`

	row := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, id)
	action, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get action", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return action, nil
}

// List returns actions newest first, optionally filtered by status
func (r *ActionRepository) List(ctx context.Context, status string) ([]*models.PendingAction, error) {
	query := `SELECT ` + actionColumns + ` FROM pending_actions`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list actions", zap.Error(err))
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

// Update rewrites the mutable fields of an action
func (r *ActionRepository) Update(ctx context.Context, action *models.PendingAction) error {
	metadata, err := action.MarshalMetadata()
	if err != nil {
		return fmt.Errorf("failed to marshal action metadata: %w", err)
	}

	query := `
		UPDATE pending_actions
		SET recommended_qty = ?, recommended_value = ?, confidence_score = ?,
		    status = ?, metadata = ?, reviewed_at = ?, reviewed_by = ?
		WHERE id = ?
	`

	_, err = database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, query,
		action.RecommendedQty,
		action.RecommendedValue,
		action.ConfidenceScore,
		action.Status,
		metadata,
		action.ReviewedAt,
		action.ReviewedBy,
		action.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update action", zap.String("id", action.ID), zap.Error(err))
		return fmt.Errorf("failed to update action: %w", err)
	}
	return nil
}

// HasPendingInFamily reports whether a pending action of the given type
// family already exists for the SKU
func (r *ActionRepository) HasPendingInFamily(ctx context.Context, skuID, family string) (bool, error) {
	query := `
		SELECT COUNT(1) FROM pending_actions
		WHERE sku_id = ? AND type_family = ? AND status = 'pending'
	`

	var count int
	err := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, skuID, family).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to check pending actions", zap.String("sku_id", skuID), zap.Error(err))
		return false, fmt.Errorf("failed to check pending actions: %w", err)
	}
	return count > 0, nil
}

// ListReviewedSince returns actions reviewed at or after the cutoff
func (r *ActionRepository) ListReviewedSince(ctx context.Context, since time.Time) ([]*models.PendingAction, error) {
	query := `SELECT ` + actionColumns + ` FROM pending_actions
		WHERE status != 'pending' AND reviewed_at >= ?
		ORDER BY reviewed_at`

	rows, err := database.ExecutorFromContext(ctx, r.db).QueryContext(ctx, query, since)
	if err != nil {
		r.logger.Error("Failed to list reviewed actions", zap.Error(err))
		return nil, fmt.Errorf("failed to list reviewed actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

func collectActions(rows *sql.Rows) ([]*models.PendingAction, error) {
	var actions []*models.PendingAction
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func scanAction(s scanner) (*models.PendingAction, error) {
	var action models.PendingAction
	var qty sql.NullInt64
	var value sql.NullFloat64
	var supplierID, reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	var metadata string

	err := s.Scan(
		&action.ID,
		&action.SKUID,
		&action.Type,
		&action.Priority,
		&action.Title,
		&action.Justification,
		&action.Risks,
		&action.Alternatives,
		&qty,
		&value,
		&supplierID,
		&action.ConfidenceScore,
		&action.Status,
		&metadata,
		&action.CreatedAt,
		&reviewedAt,
		&reviewedBy,
	)
	if err != nil {
		return nil, err
	}

	if qty.Valid {
		v := int(qty.Int64)
		action.RecommendedQty = &v
	}
	action.RecommendedValue = nullFloat(value)
	if supplierID.Valid {
		action.SupplierID = &supplierID.String
	}
	if reviewedAt.Valid {
		action.ReviewedAt = &reviewedAt.Time
	}
	if reviewedBy.Valid {
		action.ReviewedBy = &reviewedBy.String
	}
	if err := action.UnmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("failed to parse action metadata: %w", err)
	}
	return &action, nil
}
