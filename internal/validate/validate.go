// Package validate decides whether a proposed signal is admissible. Five
// ordered layers short-circuit on the first failure, and every failure
// carries a human-readable reason; callers treat a rejection as "no signal
// produced", never as a fatal error.
package validate

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"cryptoSignalBot/internal/domain"
)

// Layer names the validation layer a rejection came from.
type Layer string

const (
	LayerStructural Layer = "structural"
	LayerNumeric    Layer = "numeric"
	LayerDirection  Layer = "direction"
	LayerDistance   Layer = "distance"
	LayerLifetime   Layer = "lifetime"
)

// Rejection is the typed result of a failed validation. It is an expected,
// frequent outcome, not an exceptional error.
type Rejection struct {
	Layer  Layer
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("signal rejected (%s): %s", r.Layer, r.Reason)
}

func reject(layer Layer, format string, args ...interface{}) *Rejection {
	return &Rejection{Layer: layer, Reason: fmt.Sprintf(format, args...)}
}

// Limits is the configuration snapshot the validator checks against.
type Limits struct {
	MinTakeProfitPct   float64
	MinStopLossPct     float64
	MaxStopLossPct     float64
	MaxLifetimeMinutes int
}

// structural backs layer one; struct tags live on domain.Signal.
var structural = validator.New()

// Signal runs the five layers against a fully resolved signal. refPrice is
// the current reference price; scheduled tells the directional layer which
// activation variant applies. A nil return means admissible.
func Signal(sig *domain.Signal, refPrice float64, scheduled bool, lim Limits) error {
	if err := checkStructural(sig); err != nil {
		return err
	}
	if err := checkNumeric(sig, refPrice); err != nil {
		return err
	}
	if err := checkDirection(sig, refPrice, scheduled); err != nil {
		return err
	}
	if err := checkDistance(sig, lim); err != nil {
		return err
	}
	return checkLifetime(sig, lim)
}

// checkStructural verifies identity fields are present and the side is one
// of the two allowed values.
func checkStructural(sig *domain.Signal) error {
	if sig == nil {
		return reject(LayerStructural, "signal is nil")
	}
	if err := structural.Struct(sig); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return reject(LayerStructural, "field %s failed rule %q", f.Field(), f.Tag())
		}
		return reject(LayerStructural, "%v", err)
	}
	return nil
}

// checkNumeric guards every price against NaN, Infinity, zero and negatives
// before the signal can become durable.
func checkNumeric(sig *domain.Signal, refPrice float64) error {
	prices := []struct {
		name  string
		value float64
	}{
		{"reference price", refPrice},
		{"entry price", sig.EntryPrice},
		{"take profit", sig.TakeProfit},
		{"stop loss", sig.StopLoss},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return reject(LayerNumeric, "%s is not finite", p.name)
		}
		if p.value <= 0 {
			return reject(LayerNumeric, "%s must be strictly positive, got %v", p.name, p.value)
		}
	}
	return nil
}

// checkDirection enforces the ordering invariant three ways: against the
// resolved entry unconditionally, against the current reference price when
// the signal activates immediately, and against the entry when scheduled.
// Each variant prevents constructing a signal that would self-close the
// instant it activates.
func checkDirection(sig *domain.Signal, refPrice float64, scheduled bool) error {
	if err := checkOrdering(sig, sig.EntryPrice, "entry price"); err != nil {
		return err
	}
	if scheduled {
		// The scheduled variant re-anchors on the entry the signal will
		// eventually activate at.
		return checkOrdering(sig, sig.EntryPrice, "scheduled entry price")
	}
	return checkOrdering(sig, refPrice, "current price")
}

func checkOrdering(sig *domain.Signal, anchor float64, anchorName string) error {
	if sig.Side == domain.Long {
		if sig.StopLoss >= anchor {
			return reject(LayerDirection, "long stop loss %v must be below %s %v", sig.StopLoss, anchorName, anchor)
		}
		if sig.TakeProfit <= anchor {
			return reject(LayerDirection, "long take profit %v must be above %s %v", sig.TakeProfit, anchorName, anchor)
		}
		return nil
	}
	if sig.StopLoss <= anchor {
		return reject(LayerDirection, "short stop loss %v must be above %s %v", sig.StopLoss, anchorName, anchor)
	}
	if sig.TakeProfit >= anchor {
		return reject(LayerDirection, "short take profit %v must be below %s %v", sig.TakeProfit, anchorName, anchor)
	}
	return nil
}

// checkDistance rejects micro-profits below the configured minimum TP
// distance and stops outside the configured band: hair-trigger stops waste
// cost, oversized ones expose the account to a single catastrophic trade.
func checkDistance(sig *domain.Signal, lim Limits) error {
	tpDist := math.Abs(sig.TakeProfit-sig.EntryPrice) / sig.EntryPrice * 100.0
	if tpDist < lim.MinTakeProfitPct {
		return reject(LayerDistance, "take profit distance %.4f%% below minimum %.4f%%", tpDist, lim.MinTakeProfitPct)
	}

	slDist := math.Abs(sig.EntryPrice-sig.StopLoss) / sig.EntryPrice * 100.0
	if slDist < lim.MinStopLossPct {
		return reject(LayerDistance, "stop loss distance %.4f%% below minimum %.4f%%", slDist, lim.MinStopLossPct)
	}
	if slDist > lim.MaxStopLossPct {
		return reject(LayerDistance, "stop loss distance %.4f%% above maximum %.4f%%", slDist, lim.MaxStopLossPct)
	}
	return nil
}

// checkLifetime bounds estimated lifetimes so a signal cannot block its
// slot indefinitely.
func checkLifetime(sig *domain.Signal, lim Limits) error {
	if sig.LifetimeMinutes <= 0 {
		return reject(LayerLifetime, "lifetime must be a positive number of minutes, got %d", sig.LifetimeMinutes)
	}
	if sig.LifetimeMinutes > lim.MaxLifetimeMinutes {
		return reject(LayerLifetime, "lifetime %dm exceeds maximum %dm", sig.LifetimeMinutes, lim.MaxLifetimeMinutes)
	}
	return nil
}
