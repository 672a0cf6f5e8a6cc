package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/stokhq/inventory-agent/internal/models"
)

// Observation is one aggregated day of sales: all records for a calendar
// day summed, indexed by days elapsed since the first observation.
type Observation struct {
	Date time.Time
	T    int
	Y    float64
}

// Model is one forecasting strategy. The engine tries models in order and
// records which one succeeded; Fit returns an error when the model cannot
// be applied to the given history.
type Model interface {
	Name() string
	Fit(obs []Observation) error
	Predict(horizon int) []models.ForecastPoint
}

const dateLayout = "2006-01-02"

// aggregateDaily groups sales records by calendar day, sums quantities and
// returns observations sorted by date.
func aggregateDaily(sales []*models.SalesRecord) []Observation {
	if len(sales) == 0 {
		return nil
	}

	byDay := make(map[string]float64)
	dates := make(map[string]time.Time)
	for _, s := range sales {
		day := s.Date.Format(dateLayout)
		byDay[day] += float64(s.QuantitySold)
		if _, ok := dates[day]; !ok {
			dates[day] = time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
		}
	}

	obs := make([]Observation, 0, len(byDay))
	for day, y := range byDay {
		obs = append(obs, Observation{Date: dates[day], Y: y})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	first := obs[0].Date
	for i := range obs {
		obs[i].T = int(obs[i].Date.Sub(first).Hours() / 24)
	}
	return obs
}

// olsFit computes an ordinary least squares line y = slope*t + intercept.
func olsFit(obs []Observation) (slope, intercept float64) {
	n := float64(len(obs))
	var sumT, sumY, sumTY, sumTT float64
	for _, o := range obs {
		t := float64(o.T)
		sumT += t
		sumY += o.Y
		sumTY += t * o.Y
		sumTT += t * t
	}

	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumTY - sumT*sumY) / denom
	intercept = (sumY - slope*sumT) / n
	return slope, intercept
}

// stddev returns the population standard deviation of xs.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// round1 rounds to one decimal place, matching the stored payload format.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
