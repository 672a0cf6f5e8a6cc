package market

import "time"

// Market sentiment classifications.
const (
	SentimentStable   = "stable"
	SentimentNeutral  = "neutral"
	SentimentVolatile = "volatile"
)

// Shipping stress classifications.
const (
	ShippingLow      = "low"
	ShippingNormal   = "normal"
	ShippingElevated = "elevated"
)

// Context aggregates the external economic signals one engine run shares
// across all items.
type Context struct {
	Sentiment string
	Shipping  string
	USDEUR    *float64
	Rates     map[string]float64
	Signals   []string
	FetchedAt time.Time
}

// Neutral returns the context used when signal fetching is unavailable.
func Neutral(now time.Time) *Context {
	return &Context{
		Sentiment: SentimentNeutral,
		Shipping:  ShippingNormal,
		FetchedAt: now,
	}
}

// AdjustQuantity applies the market buffer to a base order quantity:
// +15% under volatile sentiment, then +10% under elevated shipping stress
// (compounding, in that order). The result never drops below the base.
func (c *Context) AdjustQuantity(base int) int {
	qty := base
	if c.Sentiment == SentimentVolatile {
		qty = int(float64(qty) * 1.15)
	}
	if c.Shipping == ShippingElevated {
		qty = int(float64(qty) * 1.10)
	}
	if qty < base {
		return base
	}
	return qty
}
