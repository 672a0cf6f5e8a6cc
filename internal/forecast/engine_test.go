package forecast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/models"
)

// Mock repositories

type mockCacheRepo struct {
	entries map[string]*models.ForecastCache
	upserts int
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string]*models.ForecastCache)}
}

func (m *mockCacheRepo) GetBySKU(ctx context.Context, skuID string) (*models.ForecastCache, error) {
	return m.entries[skuID], nil
}

func (m *mockCacheRepo) Upsert(ctx context.Context, entry *models.ForecastCache) error {
	m.upserts++
	m.entries[entry.SKUID] = entry
	return nil
}

func (m *mockCacheRepo) InvalidateAll(ctx context.Context) error {
	m.entries = make(map[string]*models.ForecastCache)
	return nil
}

type mockSalesRepo struct {
	records []*models.SalesRecord
	calls   int
}

func (m *mockSalesRepo) ListBySKU(ctx context.Context, skuID string) ([]*models.SalesRecord, error) {
	m.calls++
	return m.records, nil
}

func (m *mockSalesRepo) ListBySKUSince(ctx context.Context, skuID string, since time.Time) ([]*models.SalesRecord, error) {
	m.calls++
	return m.records, nil
}

func testConfig() config.ForecastConfig {
	return config.ForecastConfig{
		HorizonDays:     30,
		CacheTTL:        6 * time.Hour,
		MinObservations: 10,
	}
}

func newTestEngine(cache *mockCacheRepo, sales *mockSalesRepo, now time.Time) *Engine {
	e := NewEngine(cache, sales, testConfig(), zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func dailySales(end time.Time, days int, qty func(day int) int) []*models.SalesRecord {
	var records []*models.SalesRecord
	for d := days; d >= 1; d-- {
		records = append(records, &models.SalesRecord{
			SKUID:        "sku-1",
			Date:         end.AddDate(0, 0, -d),
			QuantitySold: qty(days - d),
		})
	}
	return records
}

func TestSparseHistoryUsesFlatProjection(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sales := &mockSalesRepo{records: dailySales(now, 5, func(int) int { return 6 })}
	e := newTestEngine(newMockCacheRepo(), sales, now)

	result, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)

	assert.Equal(t, models.ModelMovingAverage, result.Model)
	assert.Nil(t, result.Accuracy)
	assert.Len(t, result.Forecast, 30)

	// Velocity = 30 units over a 30-day window = 1/day, band +-20%
	first := result.Forecast[0]
	assert.Equal(t, 1.0, first.Value)
	assert.Equal(t, 0.8, first.Lower)
	assert.Equal(t, 1.2, first.Upper)
}

func TestFlatSeriesFallsBackToLinearTrend(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Zero variance: seasonal model refuses, linear fits a flat line
	sales := &mockSalesRepo{records: dailySales(now, 14, func(int) int { return 5 })}
	e := newTestEngine(newMockCacheRepo(), sales, now)

	result, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)

	assert.Equal(t, models.ModelLinearTrend, result.Model)
	require.NotNil(t, result.Accuracy)
	assert.Equal(t, 100.0, *result.Accuracy)
	require.Len(t, result.Forecast, 30)
	for _, p := range result.Forecast {
		assert.Equal(t, 5.0, p.Value)
	}
}

func TestVaryingSeriesUsesSeasonalTrend(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Weekly pattern over several weeks
	sales := &mockSalesRepo{records: dailySales(now, 28, func(day int) int { return 10 + 5*(day%7) })}
	e := newTestEngine(newMockCacheRepo(), sales, now)

	result, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)

	assert.Equal(t, models.ModelSeasonalTrend, result.Model)
	assert.Len(t, result.Forecast, 30)
	assert.Len(t, result.Actual, 14)
	for _, p := range result.Forecast {
		assert.GreaterOrEqual(t, p.Upper, p.Value)
		assert.LessOrEqual(t, p.Lower, p.Value)
	}
}

func TestCacheHitServedVerbatim(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newMockCacheRepo()
	sales := &mockSalesRepo{records: dailySales(now, 14, func(day int) int { return 4 + day%3 })}
	e := newTestEngine(cache, sales, now)

	first, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)
	require.Equal(t, 1, cache.upserts)
	salesCallsAfterFirst := sales.calls

	second, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)

	// No recompute: sales untouched, no new cache write
	assert.Equal(t, salesCallsAfterFirst, sales.calls)
	assert.Equal(t, 1, cache.upserts)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
	assert.JSONEq(t, cache.entries["sku-1"].ForecastRaw, string(secondJSON))
}

func TestCacheExpiryTriggersRecompute(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newMockCacheRepo()
	sales := &mockSalesRepo{records: dailySales(start, 14, func(day int) int { return 4 + day%3 })}
	e := newTestEngine(cache, sales, start)

	_, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)
	firstID := cache.entries["sku-1"].ID

	// Jump past the 6h TTL
	e.now = func() time.Time { return start.Add(7 * time.Hour) }

	_, err = e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)

	assert.Equal(t, 2, cache.upserts)
	// Single row per SKU: the same entry is overwritten, not duplicated
	assert.Equal(t, firstID, cache.entries["sku-1"].ID)
	assert.Len(t, cache.entries, 1)
	assert.Equal(t, start.Add(7*time.Hour).Add(6*time.Hour), cache.entries["sku-1"].ValidUntil)
}

func TestInvalidateClearsAllEntries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newMockCacheRepo()
	sales := &mockSalesRepo{records: dailySales(now, 5, func(int) int { return 2 })}
	e := newTestEngine(cache, sales, now)

	_, err := e.ForecastSKU(context.Background(), "sku-1")
	require.NoError(t, err)
	require.Len(t, cache.entries, 1)

	require.NoError(t, e.Invalidate(context.Background()))
	assert.Empty(t, cache.entries)
}
