package validate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/internal/domain"
)

func testLimits() Limits {
	return Limits{
		MinTakeProfitPct:   0.3,
		MinStopLossPct:     0.2,
		MaxStopLossPct:     20.0,
		MaxLifetimeMinutes: 2880,
	}
}

func longSignal() *domain.Signal {
	return &domain.Signal{
		ID:              "sig-1",
		Symbol:          "ETHUSDT",
		StrategyID:      "default",
		ExchangeID:      "binance-futures",
		Side:            domain.Long,
		EntryPrice:      42000,
		TakeProfit:      42600,
		StopLoss:        41500,
		OriginalTakeProfit: 42600,
		OriginalStopLoss:   41500,
		LifetimeMinutes: 120,
	}
}

func shortSignal() *domain.Signal {
	s := longSignal()
	s.Side = domain.Short
	s.TakeProfit = 41400
	s.StopLoss = 42500
	s.OriginalTakeProfit = 41400
	s.OriginalStopLoss = 42500
	return s
}

func rejectionLayer(t *testing.T, err error) Layer {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected a typed rejection, got %v", err)
	return rej.Layer
}

func TestValidLongAndShortPass(t *testing.T) {
	require.NoError(t, Signal(longSignal(), 42000, false, testLimits()))
	require.NoError(t, Signal(shortSignal(), 42000, false, testLimits()))
}

func TestStructuralRejections(t *testing.T) {
	sig := longSignal()
	sig.StrategyID = ""
	assert.Equal(t, LayerStructural, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))

	sig = longSignal()
	sig.Side = "sideways"
	assert.Equal(t, LayerStructural, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))
}

func TestNumericSafetyRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Signal)
		ref    float64
	}{
		{"nan entry", func(s *domain.Signal) { s.EntryPrice = math.NaN() }, 42000},
		{"inf take profit", func(s *domain.Signal) { s.TakeProfit = math.Inf(1) }, 42000},
		{"zero stop loss", func(s *domain.Signal) { s.StopLoss = 0 }, 42000},
		{"negative entry", func(s *domain.Signal) { s.EntryPrice = -1 }, 42000},
		{"nan reference", func(s *domain.Signal) {}, math.NaN()},
		{"zero reference", func(s *domain.Signal) {}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := longSignal()
			tc.mutate(sig)
			assert.Equal(t, LayerNumeric, rejectionLayer(t, Signal(sig, tc.ref, false, testLimits())))
		})
	}
}

func TestDirectionalRejections(t *testing.T) {
	sig := longSignal()
	sig.StopLoss = 42600 // above entry
	assert.Equal(t, LayerDirection, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))

	sig = shortSignal()
	sig.TakeProfit = 43000 // above entry on a short
	assert.Equal(t, LayerDirection, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))
}

func TestImmediateActivationChecksCurrentPrice(t *testing.T) {
	// Ordering holds against the entry but the market has already fallen
	// through the stop: the signal would self-close on activation.
	sig := longSignal()
	err := Signal(sig, 41400, false, testLimits())
	assert.Equal(t, LayerDirection, rejectionLayer(t, err))

	// The same signal as a scheduled limit order is anchored on its entry
	// and passes.
	require.NoError(t, Signal(sig, 41400, true, testLimits()))
}

func TestMicroProfitRejected(t *testing.T) {
	// TP only 10 points above a 42000 entry is a 0.024% move, far below
	// the 0.3% minimum distance.
	sig := longSignal()
	sig.TakeProfit = 42010
	err := Signal(sig, 42000, false, testLimits())
	assert.Equal(t, LayerDistance, rejectionLayer(t, err))
	assert.Contains(t, err.Error(), "take profit distance")
}

func TestExtremeStopRejected(t *testing.T) {
	// A stop at 20000 under a 42000 entry is a 52% distance against the
	// 20% cap.
	sig := longSignal()
	sig.StopLoss = 20000
	err := Signal(sig, 42000, false, testLimits())
	assert.Equal(t, LayerDistance, rejectionLayer(t, err))
	assert.Contains(t, err.Error(), "above maximum")
}

func TestHairTriggerStopRejected(t *testing.T) {
	sig := longSignal()
	sig.StopLoss = 41990 // 0.024% distance, below the 0.2% floor
	err := Signal(sig, 42000, false, testLimits())
	assert.Equal(t, LayerDistance, rejectionLayer(t, err))
}

func TestLifetimeRejections(t *testing.T) {
	sig := longSignal()
	sig.LifetimeMinutes = 0
	assert.Equal(t, LayerLifetime, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))

	sig = longSignal()
	sig.LifetimeMinutes = 10000
	assert.Equal(t, LayerLifetime, rejectionLayer(t, Signal(sig, 42000, false, testLimits())))
}

// TestOrderingInvariantProperty fuzzes price triples and asserts the
// directional invariant holds exactly when validation passes:
// long => sl < entry < tp, short => tp < entry < sl.
func TestOrderingInvariantProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	lim := Limits{
		MinTakeProfitPct:   0.0001,
		MinStopLossPct:     0.0001,
		MaxStopLossPct:     1000,
		MaxLifetimeMinutes: 2880,
	}

	for i := 0; i < 2000; i++ {
		entry := 100 + rng.Float64()*900
		tp := entry * (0.5 + rng.Float64())
		sl := entry * (0.5 + rng.Float64())
		side := domain.Long
		if rng.Intn(2) == 0 {
			side = domain.Short
		}

		sig := longSignal()
		sig.Side = side
		sig.EntryPrice = entry
		sig.TakeProfit = tp
		sig.StopLoss = sl

		err := Signal(sig, entry, true, lim)
		var holds bool
		if side == domain.Long {
			holds = sl < entry && entry < tp
		} else {
			holds = tp < entry && entry < sl
		}
		if holds {
			assert.NoError(t, err, "side=%s entry=%v tp=%v sl=%v", side, entry, tp, sl)
		} else {
			assert.Error(t, err, "side=%s entry=%v tp=%v sl=%v", side, entry, tp, sl)
		}
	}
}
