package models

import "time"

// Forecast model identifiers, in fallback order.
const (
	ModelSeasonalTrend = "seasonal_trend"
	ModelLinearTrend   = "linear_trend"
	ModelMovingAverage = "moving_average"
)

// ForecastPoint is one projected day with its confidence band.
type ForecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ActualPoint is one observed day included alongside a projection.
type ActualPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// ForecastResult is the cached forecast payload: the trailing actuals, the
// forward projection, the model that produced it and its backtested
// accuracy (nil when no backtest was possible).
type ForecastResult struct {
	Actual   []ActualPoint   `json:"actual"`
	Forecast []ForecastPoint `json:"forecast"`
	Model    string          `json:"model"`
	Accuracy *float64        `json:"accuracy"`
}

// ForecastCache is the single cached forecast row for a SKU. Never served
// past ValidUntil; overwritten in place on recompute; cleared wholesale
// when new sales data is ingested.
type ForecastCache struct {
	ID          string
	SKUID       string
	ForecastRaw string // ForecastResult JSON, returned verbatim on a hit
	ModelUsed   string
	AccuracyPct *float64
	ComputedAt  time.Time
	ValidUntil  time.Time
}
