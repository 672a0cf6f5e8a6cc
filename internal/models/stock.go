package models

import "time"

// StockLevel is the current on-hand quantity for a SKU at a location.
// One row per SKU; mutated by uploads and sales, never by the engine.
type StockLevel struct {
	ID          string
	SKUID       string
	Location    string
	Quantity    int
	LastUpdated time.Time
}

// SalesRecord is one observed sale. Append-only history.
type SalesRecord struct {
	ID           string
	SKUID        string
	Date         time.Time
	QuantitySold int
	Revenue      float64
	Channel      string
	CreatedAt    time.Time
}
