package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/stokhq/inventory-agent/internal/models"
)

// z-score for a 90% confidence interval under normal residuals.
const intervalZ = 1.645

// linearModel is the fallback: an ordinary least squares fit of quantity
// against day index, with a +-1.645 x residual-std confidence band.
type linearModel struct {
	slope     float64
	intercept float64
	residStd  float64
	lastT     int
	lastDate  time.Time
}

func newLinearModel() *linearModel {
	return &linearModel{}
}

func (m *linearModel) Name() string {
	return models.ModelLinearTrend
}

func (m *linearModel) Fit(obs []Observation) error {
	if len(obs) < 2 {
		return fmt.Errorf("linear trend needs at least 2 observations, got %d", len(obs))
	}

	m.slope, m.intercept = olsFit(obs)

	residuals := make([]float64, len(obs))
	for i, o := range obs {
		residuals[i] = o.Y - (m.slope*float64(o.T) + m.intercept)
	}
	m.residStd = stddev(residuals)

	last := obs[len(obs)-1]
	m.lastT = last.T
	m.lastDate = last.Date
	return nil
}

func (m *linearModel) Predict(horizon int) []models.ForecastPoint {
	points := make([]models.ForecastPoint, 0, horizon)
	band := intervalZ * m.residStd

	for i := 1; i <= horizon; i++ {
		val := m.slope*float64(m.lastT+i) + m.intercept
		val = math.Max(0, val)
		points = append(points, models.ForecastPoint{
			Date:  m.lastDate.AddDate(0, 0, i).Format(dateLayout),
			Value: round1(val),
			Lower: round1(math.Max(0, val-band)),
			Upper: round1(val + band),
		})
	}
	return points
}
