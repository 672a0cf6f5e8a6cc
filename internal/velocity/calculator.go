package velocity

import (
	"time"

	"github.com/stokhq/inventory-agent/internal/models"
)

// Stockout risk classifications, ordered by severity.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// Assessment is the velocity and stockout-risk picture for one SKU.
// DaysRemaining is nil when velocity is zero (stockout date undefined).
type Assessment struct {
	Velocity      float64
	DaysRemaining *float64
	Risk          string
}

// Calculator turns raw sales observations into a daily demand rate and a
// risk classification.
type Calculator struct {
	windowDays int
}

// NewCalculator creates a calculator with the given trailing window.
func NewCalculator(windowDays int) *Calculator {
	return &Calculator{windowDays: windowDays}
}

// Velocity returns average units sold per day over the trailing window.
// When the window contains no rows it falls back to the mean of all
// available observations; with no observations at all it returns 0.
func (c *Calculator) Velocity(sales []*models.SalesRecord, now time.Time) float64 {
	if len(sales) == 0 {
		return 0
	}

	cutoff := now.AddDate(0, 0, -c.windowDays)
	var recentSum int
	var recentCount int
	for _, s := range sales {
		if !s.Date.Before(cutoff) {
			recentSum += s.QuantitySold
			recentCount++
		}
	}

	if recentCount == 0 {
		var total int
		for _, s := range sales {
			total += s.QuantitySold
		}
		return float64(total) / float64(len(sales))
	}

	return float64(recentSum) / float64(c.windowDays)
}

// Assess computes the velocity for the SKU and classifies its stockout
// risk against current stock, lead time and reorder point.
func (c *Calculator) Assess(sku *models.SKU, stock int, sales []*models.SalesRecord, now time.Time) Assessment {
	v := c.Velocity(sales, now)

	a := Assessment{Velocity: v, Risk: RiskLow}
	if v <= 0 {
		return a
	}

	days := float64(stock) / v
	a.DaysRemaining = &days

	leadTime := float64(sku.LeadTimeDays)
	switch {
	case days <= leadTime:
		a.Risk = RiskCritical
	case days <= 2*leadTime:
		a.Risk = RiskHigh
	case stock > 5*sku.ReorderPoint && v < 0.2:
		// Slow mover sitting on excess stock
		a.Risk = RiskMedium
	default:
		a.Risk = RiskLow
	}

	return a
}
