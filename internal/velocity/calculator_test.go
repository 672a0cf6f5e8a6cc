package velocity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stokhq/inventory-agent/internal/models"
)

func salesAt(now time.Time, daysAgo int, qty int) *models.SalesRecord {
	return &models.SalesRecord{
		SKUID:        "sku-1",
		Date:         now.AddDate(0, 0, -daysAgo),
		QuantitySold: qty,
	}
}

func TestVelocityNoObservations(t *testing.T) {
	c := NewCalculator(30)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, c.Velocity(nil, now))
	assert.Equal(t, 0.0, c.Velocity([]*models.SalesRecord{}, now))
}

func TestVelocityWindowedSum(t *testing.T) {
	c := NewCalculator(30)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 150 units inside the window, 500 outside
	sales := []*models.SalesRecord{
		salesAt(now, 5, 50),
		salesAt(now, 10, 100),
		salesAt(now, 45, 500),
	}

	assert.InDelta(t, 150.0/30.0, c.Velocity(sales, now), 1e-9)
}

func TestVelocityFallsBackToMeanOutsideWindow(t *testing.T) {
	c := NewCalculator(30)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// All observations are older than the window
	sales := []*models.SalesRecord{
		salesAt(now, 40, 10),
		salesAt(now, 50, 20),
	}

	assert.InDelta(t, 15.0, c.Velocity(sales, now), 1e-9)
}

func TestAssessUndefinedDaysRemaining(t *testing.T) {
	c := NewCalculator(30)
	now := time.Now()
	sku := &models.SKU{LeadTimeDays: 7, ReorderPoint: 20}

	a := c.Assess(sku, 100, nil, now)

	assert.Equal(t, 0.0, a.Velocity)
	assert.Nil(t, a.DaysRemaining)
	assert.Equal(t, RiskLow, a.Risk)
}

func TestAssessRiskLadder(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		stock    int
		dailyQty int // sold per day over the last 30 days
		sku      *models.SKU
		wantRisk string
	}{
		{
			name:     "critical when days remaining within lead time",
			stock:    10,
			dailyQty: 5, // velocity 5, 2 days remaining, lead 7
			sku:      &models.SKU{LeadTimeDays: 7, ReorderPoint: 20},
			wantRisk: RiskCritical,
		},
		{
			name:     "high when within twice the lead time",
			stock:    50,
			dailyQty: 5, // 10 days remaining, lead 7
			sku:      &models.SKU{LeadTimeDays: 7, ReorderPoint: 20},
			wantRisk: RiskHigh,
		},
		{
			name:     "low for healthy cover",
			stock:    500,
			dailyQty: 5, // 100 days remaining
			sku:      &models.SKU{LeadTimeDays: 7, ReorderPoint: 20},
			wantRisk: RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalculator(30)
			var sales []*models.SalesRecord
			for d := 1; d <= 30; d++ {
				sales = append(sales, salesAt(now, d, tt.dailyQty))
			}

			a := c.Assess(tt.sku, tt.stock, sales, now)
			require.NotNil(t, a.DaysRemaining)
			assert.Equal(t, tt.wantRisk, a.Risk)
		})
	}
}

func TestAssessMediumSlowMover(t *testing.T) {
	c := NewCalculator(30)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sku := &models.SKU{LeadTimeDays: 7, ReorderPoint: 20}

	// 3 units over 30 days -> velocity 0.1, stock far above 5x reorder point
	sales := []*models.SalesRecord{
		salesAt(now, 3, 1),
		salesAt(now, 12, 1),
		salesAt(now, 25, 1),
	}

	a := c.Assess(sku, 200, sales, now)
	require.NotNil(t, a.DaysRemaining)
	assert.Equal(t, RiskMedium, a.Risk)
}
