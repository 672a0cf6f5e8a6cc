package port

import (
	"context"
	"time"

	"github.com/stokhq/inventory-agent/internal/models"
)

// The engine never owns schema; it talks to persistence through these
// interfaces. Repositories return (nil, nil) when a single-row lookup
// matches nothing.

// SKURepository reads catalog items.
type SKURepository interface {
	GetByID(ctx context.Context, id string) (*models.SKU, error)
	ListActive(ctx context.Context) ([]*models.SKU, error)
}

// StockRepository reads current stock positions.
type StockRepository interface {
	GetBySKU(ctx context.Context, skuID string) (*models.StockLevel, error)
}

// SalesRepository reads the append-only sales history.
type SalesRepository interface {
	ListBySKU(ctx context.Context, skuID string) ([]*models.SalesRecord, error)
	ListBySKUSince(ctx context.Context, skuID string, since time.Time) ([]*models.SalesRecord, error)
}

// SupplierRepository reads suppliers and writes back engine-computed ranks.
type SupplierRepository interface {
	GetByID(ctx context.Context, id string) (*models.Supplier, error)
	ListActive(ctx context.Context) ([]*models.Supplier, error)
	UpdateRank(ctx context.Context, id string, rank int) error
}

// SKUSupplierRepository reads candidate sourcing links.
type SKUSupplierRepository interface {
	ListBySKU(ctx context.Context, skuID string) ([]*models.SKUSupplier, error)
}

// ActionRepository persists pending actions and their review state.
type ActionRepository interface {
	Create(ctx context.Context, action *models.PendingAction) error
	GetByID(ctx context.Context, id string) (*models.PendingAction, error)
	List(ctx context.Context, status string) ([]*models.PendingAction, error)
	Update(ctx context.Context, action *models.PendingAction) error
	// HasPendingInFamily reports whether a pending action of the given
	// type family already exists for the SKU.
	HasPendingInFamily(ctx context.Context, skuID, family string) (bool, error)
	// ListReviewedSince returns actions that left the pending state at or
	// after the cutoff (approved, rejected or executed).
	ListReviewedSince(ctx context.Context, since time.Time) ([]*models.PendingAction, error)
}

// AuditRepository appends to and reads the immutable audit trail.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	// FindModification returns the "modified" outcome entry for an action,
	// if any. The feedback learner reads quantity overrides from it.
	FindModification(ctx context.Context, actionID string) (*models.AuditEntry, error)
}

// ForecastCacheRepository holds at most one cached forecast per SKU.
type ForecastCacheRepository interface {
	GetBySKU(ctx context.Context, skuID string) (*models.ForecastCache, error)
	Upsert(ctx context.Context, entry *models.ForecastCache) error
	// InvalidateAll clears every cache row; called when sales data is
	// ingested, since affected SKUs cannot be determined selectively.
	InvalidateAll(ctx context.Context) error
}

// TransactionManager executes a function within one database transaction.
// Nested calls join the enclosing transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
