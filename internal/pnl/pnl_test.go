package pnl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cryptoSignalBot/internal/domain"
)

func TestSettleLongReferenceValues(t *testing.T) {
	// entry=100 exit=103 slippage=0.1% fee=0.1%:
	// effective entry 100.1, effective exit 102.897,
	// raw move 2.79421%, minus 0.2% fees = 2.59421%.
	got := Settle(domain.Long, 100, 103, 0.1, 0.1)
	assert.InDelta(t, 2.59421, got, 0.0001)
	assert.InDelta(t, 2.6, got, 0.01)
}

func TestSettleShortReferenceValues(t *testing.T) {
	// entry=100 exit=97 slippage=0.1% fee=0.1%:
	// effective entry 99.9, effective exit 97.097,
	// raw move 2.80581%, minus 0.2% fees = 2.60581%.
	got := Settle(domain.Short, 100, 97, 0.1, 0.1)
	assert.InDelta(t, 2.60581, got, 0.0001)
}

func TestSettleLosingTrades(t *testing.T) {
	long := Settle(domain.Long, 100, 98, 0.1, 0.1)
	assert.Less(t, long, -2.0, "long losing 2%% raw must lose more after costs")

	short := Settle(domain.Short, 100, 102, 0.1, 0.1)
	assert.Less(t, short, -2.0, "short losing 2%% raw must lose more after costs")
}

func TestSettleZeroCostsMatchesRawMove(t *testing.T) {
	assert.InDelta(t, 3.0, Settle(domain.Long, 100, 103, 0, 0), 1e-9)
	assert.InDelta(t, 3.0, Settle(domain.Short, 100, 97, 0, 0), 1e-9)
}

func TestSettleFlatTradeLosesRoundTripCost(t *testing.T) {
	// Entering and exiting at the same price still pays both slippage legs
	// and both fees.
	got := Settle(domain.Long, 42000, 42000, 0.1, 0.1)
	assert.Less(t, got, -RoundTripCostPct(0.1, 0.1)+0.01)
}

func TestSettlePropagatesNonFiniteInputs(t *testing.T) {
	assert.True(t, math.IsNaN(Settle(domain.Long, math.NaN(), 103, 0.1, 0.1)))
	assert.True(t, math.IsNaN(Settle(domain.Short, 100, math.NaN(), 0.1, 0.1)))
}

func TestRoundTripCostPct(t *testing.T) {
	assert.InDelta(t, 0.4, RoundTripCostPct(0.1, 0.1), 1e-9)
	assert.InDelta(t, 1.0, RoundTripCostPct(0.3, 0.2), 1e-9)
}
