package engine

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Trailing adjustments mutate the effective take-profit/stop-loss levels of
// an active signal without changing its lifecycle state. The original
// levels stay untouched for reporting, and every adjustment is persisted so
// a restart resumes with the tightened levels.

// MoveStopToBreakeven lifts the effective stop loss to the entry price.
// A stop already at or past breakeven is left alone.
func (e *Engine) MoveStopToBreakeven(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sig := e.active
	if sig == nil {
		return ports.ErrNoActiveSignal
	}

	if sig.Side == domain.Long && sig.StopLoss >= sig.EntryPrice {
		return nil
	}
	if sig.Side == domain.Short && sig.StopLoss <= sig.EntryPrice {
		return nil
	}

	return e.adjustLevels(ctx, sig.TakeProfit, sig.EntryPrice)
}

// AdjustTrailing replaces the effective levels. Adjustments may only
// tighten: the stop moves toward the price, the take-profit never moves
// further out than its original level.
func (e *Engine) AdjustTrailing(ctx context.Context, takeProfit, stopLoss float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sig := e.active
	if sig == nil {
		return ports.ErrNoActiveSignal
	}

	if sig.Side == domain.Long {
		if stopLoss < sig.StopLoss {
			return fmt.Errorf("trailing stop %v would loosen current %v", stopLoss, sig.StopLoss)
		}
		if takeProfit > sig.OriginalTakeProfit {
			return fmt.Errorf("trailing take profit %v exceeds original %v", takeProfit, sig.OriginalTakeProfit)
		}
	} else {
		if stopLoss > sig.StopLoss {
			return fmt.Errorf("trailing stop %v would loosen current %v", stopLoss, sig.StopLoss)
		}
		if takeProfit < sig.OriginalTakeProfit {
			return fmt.Errorf("trailing take profit %v exceeds original %v", takeProfit, sig.OriginalTakeProfit)
		}
	}

	return e.adjustLevels(ctx, takeProfit, stopLoss)
}

// adjustLevels writes the new effective levels durably before mutating
// in-memory state. Caller holds the mutex.
func (e *Engine) adjustLevels(ctx context.Context, takeProfit, stopLoss float64) error {
	sig := e.active
	updated := *sig
	updated.TakeProfit = takeProfit
	updated.StopLoss = stopLoss

	if err := e.store.WriteActive(ctx, e.key, &updated); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err)
	}

	sig.TakeProfit = takeProfit
	sig.StopLoss = stopLoss
	e.logger.Info(ctx, "Adjusted effective levels", map[string]interface{}{
		"key": e.key.String(), "signalID": sig.ID,
		"takeProfit": takeProfit, "stopLoss": stopLoss,
		"originalTakeProfit": sig.OriginalTakeProfit, "originalStopLoss": sig.OriginalStopLoss,
	})
	return nil
}
