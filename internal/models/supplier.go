package models

import "time"

// Supplier reliability metrics are fractions in [0, 1]. Nil means the
// metric has never been measured; ranking treats missing metrics as a zero
// contribution, and per-item selection substitutes documented defaults.
type Supplier struct {
	ID              string
	Code            string
	Name            string
	ContactEmail    string
	AvgLeadTimeDays *float64
	OnTimeRate      *float64
	QualityRate     *float64
	CostVariancePct *float64
	Rank            *int // engine-computed, overwritten on each ranking pass
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
