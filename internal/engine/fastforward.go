package engine

import (
	"context"
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// FastForward resolves the active signal's entire remaining lifetime in one
// scan over fine-grained historical candles, instead of one Tick call per
// outer timestamp. It exists purely for backtest performance; the close
// conditions are the same ones tickActive evaluates.
//
// Tie-break policy: when a single candle's high/low range crosses both the
// take-profit and the stop-loss, the take-profit is honored first. This
// optimistic resolution is a deliberate policy choice, preserved as-is
// because changing it would silently alter historical backtest results.
func (e *Engine) FastForward(ctx context.Context, klines []*domain.Kline) (*domain.TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sig := e.active
	if sig == nil {
		return nil, fmt.Errorf("%w: fast-forward requires an active signal", ports.ErrNoActiveSignal)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("fast-forward for signal %s: no candles supplied", sig.ID)
	}

	deadline := sig.Deadline()

	for _, k := range klines {
		// Skip candles that opened before the signal went live. A candle
		// merely closing at the activation instant spans pre-activation
		// trading, and its extremes must not close the signal.
		if k.OpenTime.Before(sig.ActivatedAt) {
			continue
		}
		// A candle starting past the deadline means the lifetime elapsed
		// in the gap; close at that candle's open.
		if k.OpenTime.After(deadline) {
			return e.close(ctx, k.Open, domain.CloseReasonTimeout, deadline)
		}

		if candleCrossesTP(sig, k) {
			return e.close(ctx, sig.TakeProfit, domain.CloseReasonTakeProfit, k.CloseTime)
		}
		if candleCrossesSL(sig, k) {
			return e.close(ctx, sig.StopLoss, domain.CloseReasonStopLoss, k.CloseTime)
		}

		if !k.CloseTime.Before(deadline) {
			return e.close(ctx, k.Close, domain.CloseReasonTimeout, k.CloseTime)
		}
	}

	// The caller is expected to supply candles covering the full lifetime.
	// If the feed came up short, close on the final candle rather than
	// leave the signal dangling past its history.
	last := klines[len(klines)-1]
	e.logger.Warn(ctx, "Fast-forward exhausted candles before close condition", map[string]interface{}{
		"key": e.key.String(), "signalID": sig.ID, "candles": len(klines),
	})
	return e.close(ctx, last.Close, domain.CloseReasonTimeout, last.CloseTime)
}

func candleCrossesTP(sig *domain.Signal, k *domain.Kline) bool {
	if sig.Side == domain.Long {
		return k.High >= sig.TakeProfit
	}
	return k.Low <= sig.TakeProfit
}

func candleCrossesSL(sig *domain.Signal, k *domain.Kline) bool {
	if sig.Side == domain.Long {
		return k.Low <= sig.StopLoss
	}
	return k.High >= sig.StopLoss
}
