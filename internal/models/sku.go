package models

import "time"

// SKU is a catalog item. Catalog management owns these rows; the decision
// engine only reads them.
type SKU struct {
	ID           string
	SKUCode      string
	Name         string
	Category     string
	UnitCost     float64
	UnitPrice    float64
	ReorderPoint int
	SafetyStock  int
	LeadTimeDays int
	MOQ          int // minimum order quantity
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SKUSupplier links a SKU to one of its candidate suppliers. Read-only to
// the engine.
type SKUSupplier struct {
	ID           string
	SKUID        string
	SupplierID   string
	UnitCost     *float64
	LeadTimeDays *int
	MOQ          int
	IsPreferred  bool
}
