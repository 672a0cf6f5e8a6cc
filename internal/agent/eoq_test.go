package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEOQFallsBackWithoutDemandOrCost(t *testing.T) {
	assert.Equal(t, 50, EOQ(0, 50, 0.25, 10))
	assert.Equal(t, 50, EOQ(-5, 50, 0.25, 10))
	assert.Equal(t, 50, EOQ(1825, 50, 0.25, 0))
}

func TestEOQWorkedExample(t *testing.T) {
	// sqrt(2*1825*50 / (0.25*10)) = sqrt(73000) ~ 270.19
	assert.Equal(t, 270, EOQ(1825, 50, 0.25, 10))
}

func TestEOQMonotonicInDemand(t *testing.T) {
	prev := 0
	for demand := 100.0; demand <= 10000; demand += 100 {
		qty := EOQ(demand, 50, 0.25, 10)
		assert.GreaterOrEqual(t, qty, prev)
		prev = qty
	}
}

func TestEOQDecreasesWithHoldingCost(t *testing.T) {
	cheap := EOQ(1825, 50, 0.1, 10)
	expensive := EOQ(1825, 50, 0.5, 10)
	assert.Greater(t, cheap, expensive)
}
