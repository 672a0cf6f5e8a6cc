package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/stokhq/inventory-agent/internal/models"
)

// minSeasonalObservations is the minimum number of distinct daily
// observations the seasonal model will fit on.
const minSeasonalObservations = 10

// seasonalModel is the primary strategy: a linear trend with additive
// day-of-week seasonal indices and a 90%-wide uncertainty interval. It
// refuses to fit sparse or flat histories, in which case the engine falls
// back to the linear trend model.
type seasonalModel struct {
	slope     float64
	intercept float64
	weekday   [7]float64 // additive seasonal index per weekday
	residStd  float64
	lastT     int
	lastDate  time.Time
}

func newSeasonalModel() *seasonalModel {
	return &seasonalModel{}
}

func (m *seasonalModel) Name() string {
	return models.ModelSeasonalTrend
}

func (m *seasonalModel) Fit(obs []Observation) error {
	if len(obs) < minSeasonalObservations {
		return fmt.Errorf("seasonal trend needs at least %d observations, got %d", minSeasonalObservations, len(obs))
	}

	ys := make([]float64, len(obs))
	for i, o := range obs {
		ys[i] = o.Y
	}
	if stddev(ys) == 0 {
		return fmt.Errorf("seasonal trend needs variance in the series")
	}

	m.slope, m.intercept = olsFit(obs)

	// Seasonal index = mean detrended residual per weekday
	var sums, counts [7]float64
	for _, o := range obs {
		wd := int(o.Date.Weekday())
		sums[wd] += o.Y - (m.slope*float64(o.T) + m.intercept)
		counts[wd]++
	}
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			m.weekday[wd] = sums[wd] / counts[wd]
		}
	}

	// Band width from the residuals left after trend and seasonality
	residuals := make([]float64, len(obs))
	for i, o := range obs {
		fitted := m.slope*float64(o.T) + m.intercept + m.weekday[int(o.Date.Weekday())]
		residuals[i] = o.Y - fitted
	}
	m.residStd = stddev(residuals)

	last := obs[len(obs)-1]
	m.lastT = last.T
	m.lastDate = last.Date
	return nil
}

func (m *seasonalModel) Predict(horizon int) []models.ForecastPoint {
	points := make([]models.ForecastPoint, 0, horizon)
	band := intervalZ * m.residStd

	for i := 1; i <= horizon; i++ {
		date := m.lastDate.AddDate(0, 0, i)
		val := m.slope*float64(m.lastT+i) + m.intercept + m.weekday[int(date.Weekday())]
		val = math.Max(0, val)
		points = append(points, models.ForecastPoint{
			Date:  date.Format(dateLayout),
			Value: round1(val),
			Lower: round1(math.Max(0, val-band)),
			Upper: round1(val + band),
		})
	}
	return points
}
