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

// AuditRepository handles the append-only audit trail
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one audit entry. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (
			id, timestamp, user_id, user_email, event_type, entity_type,
			entity_id, detail, outcome, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := database.ExecutorFromContext(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.UserID,
		entry.UserEmail,
		entry.EventType,
		entry.EntityType,
		entry.EntityID,
		entry.Detail,
		entry.Outcome,
		entry.Metadata,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry", zap.String("event", entry.EventType), zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// FindModification returns the "modified" outcome entry for an action,
// or nil when the action was approved unmodified
func (r *AuditRepository) FindModification(ctx context.Context, actionID string) (*models.AuditEntry, error) {
	query := `
		SELECT id, timestamp, user_id, user_email, event_type, entity_type,
		       entity_id, detail, outcome, metadata
		FROM audit_log
		WHERE entity_id = ? AND outcome = 'modified'
		ORDER BY timestamp
		LIMIT 1
	`

	var entry models.AuditEntry
	var userID sql.NullString
	err := database.ExecutorFromContext(ctx, r.db).QueryRowContext(ctx, query, actionID).Scan(
		&entry.ID,
		&entry.Timestamp,
		&userID,
		&entry.UserEmail,
		&entry.EventType,
		&entry.EntityType,
		&entry.EntityID,
		&entry.Detail,
		&entry.Outcome,
		&entry.Metadata,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find modification entry", zap.String("action_id", actionID), zap.Error(err))
		return nil, fmt.Errorf("failed to find modification entry: %w", err)
	}

	if userID.Valid {
		entry.UserID = &userID.String
	}
	return &entry, nil
}
