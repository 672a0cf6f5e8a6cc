package agent

import "math"

// fallbackOrderQty is used when demand or cost data is missing and the
// EOQ formula cannot produce a meaningful quantity.
const fallbackOrderQty = 50

// EOQ is the economic order quantity: the order size that minimizes the
// sum of ordering and holding costs for the given annual demand.
func EOQ(annualDemand, orderCost, holdingRate, unitCost float64) int {
	if annualDemand <= 0 || unitCost <= 0 {
		return fallbackOrderQty
	}
	eoq := math.Sqrt((2 * annualDemand * orderCost) / (holdingRate * unitCost))
	qty := int(math.Round(eoq))
	if qty < 1 {
		return 1
	}
	return qty
}
