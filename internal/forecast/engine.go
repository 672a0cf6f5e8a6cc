package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
)

// Engine produces a multi-day demand projection per SKU with a confidence
// band, choosing between the seasonal trend model and its fallbacks, and
// caches the result for the configured TTL.
type Engine struct {
	cache  port.ForecastCacheRepository
	sales  port.SalesRepository
	cfg    config.ForecastConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates a forecast engine.
func NewEngine(cache port.ForecastCacheRepository, sales port.SalesRepository, cfg config.ForecastConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cache:  cache,
		sales:  sales,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ForecastSKU returns the forecast for a SKU, serving the cached payload
// verbatim while it is still valid and recomputing (overwriting the single
// cache row) once it has expired.
func (e *Engine) ForecastSKU(ctx context.Context, skuID string) (*models.ForecastResult, error) {
	entry, err := e.cache.GetBySKU(ctx, skuID)
	if err != nil {
		return nil, fmt.Errorf("load forecast cache: %w", err)
	}

	now := e.now()
	if entry != nil && now.Before(entry.ValidUntil) {
		var cached models.ForecastResult
		if err := json.Unmarshal([]byte(entry.ForecastRaw), &cached); err == nil {
			e.logger.Debug("Forecast cache hit",
				zap.String("sku_id", skuID),
				zap.String("model", entry.ModelUsed))
			return &cached, nil
		}
		e.logger.Warn("Corrupt forecast cache row, recomputing", zap.String("sku_id", skuID))
	}

	records, err := e.sales.ListBySKU(ctx, skuID)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}

	result := e.compute(aggregateDaily(records), now)

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal forecast: %w", err)
	}

	id := uuid.NewString()
	if entry != nil {
		id = entry.ID
	}
	if err := e.cache.Upsert(ctx, &models.ForecastCache{
		ID:          id,
		SKUID:       skuID,
		ForecastRaw: string(raw),
		ModelUsed:   result.Model,
		AccuracyPct: result.Accuracy,
		ComputedAt:  now,
		ValidUntil:  now.Add(e.cfg.CacheTTL),
	}); err != nil {
		return nil, fmt.Errorf("store forecast cache: %w", err)
	}

	e.logger.Info("Forecast computed",
		zap.String("sku_id", skuID),
		zap.String("model", result.Model),
		zap.Int("observations", len(records)))
	return result, nil
}

// Invalidate clears every cached forecast. Called after sales ingestion,
// since the affected SKUs cannot be determined selectively.
func (e *Engine) Invalidate(ctx context.Context) error {
	if err := e.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate forecast cache: %w", err)
	}
	e.logger.Info("Forecast cache invalidated")
	return nil
}

// compute runs the model chain over aggregated observations.
func (e *Engine) compute(obs []Observation, now time.Time) *models.ForecastResult {
	horizon := e.cfg.HorizonDays

	if len(obs) < e.cfg.MinObservations {
		return e.flatProjection(obs, now, horizon)
	}

	var m Model = newSeasonalModel()
	holdoutDiv := 5
	if err := m.Fit(obs); err != nil {
		e.logger.Warn("Seasonal model unavailable, falling back to linear trend", zap.Error(err))
		lm := newLinearModel()
		if lerr := lm.Fit(obs); lerr != nil {
			e.logger.Warn("Linear model unavailable, using flat projection", zap.Error(lerr))
			return e.flatProjection(obs, now, horizon)
		}
		m = lm
		holdoutDiv = 3
	}

	return &models.ForecastResult{
		Actual:   lastActuals(obs, 14),
		Forecast: m.Predict(horizon),
		Model:    m.Name(),
		Accuracy: backtestAccuracy(m.Name(), obs, holdoutDiv),
	}
}

// flatProjection projects the daily velocity forward with a +-20% band.
// Used when the history is too sparse for any model.
func (e *Engine) flatProjection(obs []Observation, now time.Time, horizon int) *models.ForecastResult {
	v := flatVelocity(obs, now)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	forecast := make([]models.ForecastPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		forecast = append(forecast, models.ForecastPoint{
			Date:  today.AddDate(0, 0, i).Format(dateLayout),
			Value: round1(v),
			Lower: round1(math.Max(0, v*0.8)),
			Upper: round1(v * 1.2),
		})
	}

	return &models.ForecastResult{
		Actual:   lastActuals(obs, 14),
		Forecast: forecast,
		Model:    models.ModelMovingAverage,
		Accuracy: nil,
	}
}

// flatVelocity mirrors the velocity calculator over aggregated daily
// observations: trailing 30-day sum over 30, falling back to the mean.
func flatVelocity(obs []Observation, now time.Time) float64 {
	if len(obs) == 0 {
		return 0
	}

	cutoff := now.AddDate(0, 0, -30)
	var recentSum float64
	var recentCount int
	for _, o := range obs {
		if !o.Date.Before(cutoff) {
			recentSum += o.Y
			recentCount++
		}
	}
	if recentCount == 0 {
		var total float64
		for _, o := range obs {
			total += o.Y
		}
		return total / float64(len(obs))
	}
	return recentSum / 30
}

// lastActuals returns the trailing n observations as payload points.
func lastActuals(obs []Observation, n int) []models.ActualPoint {
	start := 0
	if len(obs) > n {
		start = len(obs) - n
	}
	actual := make([]models.ActualPoint, 0, len(obs)-start)
	for _, o := range obs[start:] {
		actual = append(actual, models.ActualPoint{
			Date:  o.Date.Format(dateLayout),
			Value: int(o.Y),
		})
	}
	return actual
}

// backtestAccuracy holds out the most recent 1/holdoutDiv of history,
// refits on the remainder, predicts the held-out window and reports
// max(0, 100 - MAPE). Returns nil when the backtest cannot run.
func backtestAccuracy(modelName string, obs []Observation, holdoutDiv int) *float64 {
	holdout := len(obs) / holdoutDiv
	if holdout < 1 {
		holdout = 1
	}
	if len(obs)-holdout < 2 {
		return nil
	}

	train := obs[:len(obs)-holdout]
	test := obs[len(obs)-holdout:]

	var m Model
	if modelName == models.ModelSeasonalTrend {
		m = newSeasonalModel()
	} else {
		m = newLinearModel()
	}
	if err := m.Fit(train); err != nil {
		return nil
	}

	trainLastT := train[len(train)-1].T
	horizon := test[len(test)-1].T - trainLastT
	preds := m.Predict(horizon)

	var sum float64
	var count int
	for _, o := range test {
		idx := o.T - trainLastT - 1
		if idx < 0 || idx >= len(preds) {
			continue
		}
		// Denominator floored at 1 to avoid division by zero days
		sum += math.Abs(o.Y-preds[idx].Value) / math.Max(o.Y, 1)
		count++
	}
	if count == 0 {
		return nil
	}

	mape := sum / float64(count) * 100
	acc := round1(math.Max(0, 100-mape))
	return &acc
}
