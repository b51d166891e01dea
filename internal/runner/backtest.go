package runner

import (
	"context"
	"fmt"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/engine"
	"cryptoSignalBot/internal/ports"
)

// Backtest replays a candle series through one engine. The outer loop ticks
// at candle closes; when a signal opens, the remainder of its lifetime is
// resolved in one fast-forward scan over the same series and the outer loop
// skips ahead past the close.
type Backtest struct {
	cfg     *config.Config
	eng     *engine.Engine
	replay  *Replay
	logger  ports.Logger
	results chan *domain.TickResult
}

// Summary aggregates the outcome of a backtest run.
type Summary struct {
	Ticks           int
	Opened          int
	Closed          int
	Wins            int
	Losses          int
	Timeouts        int
	TotalPNLPercent float64
}

// NewBacktest creates a backtest driver over the given engine and replay
// source. The engine must have been built against the same replay source.
func NewBacktest(cfg *config.Config, eng *engine.Engine, replay *Replay, logger ports.Logger) (*Backtest, error) {
	if cfg == nil || eng == nil || replay == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for backtest driver")
	}
	return &Backtest{
		cfg:     cfg,
		eng:     eng,
		replay:  replay,
		logger:  logger,
		results: make(chan *domain.TickResult, cfg.MaxEventBuffer),
	}, nil
}

// Results exposes the closed-signal stream. Entries are dropped oldest-first
// when no consumer keeps up; the Summary is always complete.
func (b *Backtest) Results() <-chan *domain.TickResult {
	return b.results
}

// Run replays the series to completion or context cancellation.
func (b *Backtest) Run(ctx context.Context) (*Summary, error) {
	defer close(b.results)

	klines := b.replay.klines
	summary := &Summary{}

	// Span of one candle, used to fetch slightly past the deadline so the
	// lifetime-elapsed-in-gap case has a candle to close on.
	candleSpan := time.Minute
	if len(klines) > 1 {
		candleSpan = klines[1].CloseTime.Sub(klines[0].CloseTime)
	}

	for i := 0; i < len(klines); i++ {
		select {
		case <-ctx.Done():
			b.logger.Info(ctx, "Backtest cancelled", map[string]interface{}{"processedTicks": summary.Ticks})
			return summary, ctx.Err()
		default:
		}

		k := klines[i]
		b.replay.Advance(i)
		summary.Ticks++

		res, err := b.eng.Tick(ctx, k.CloseTime, true)
		if err != nil {
			return summary, fmt.Errorf("backtest tick at %s failed: %w", k.CloseTime.Format(time.RFC3339), err)
		}
		b.drainEngineErrors(ctx)

		if res.Status != domain.TickOpened {
			if res.Status == domain.TickClosed {
				b.record(summary, res)
			}
			continue
		}
		summary.Opened++

		sig := res.Signal
		window, err := b.replay.GetKlinesRange(ctx, sig.Symbol, b.cfg.KlineInterval, sig.ActivatedAt, sig.Deadline().Add(candleSpan))
		if err != nil {
			return summary, fmt.Errorf("backtest failed to load fast-forward window for signal %s: %w", sig.ID, err)
		}

		closed, err := b.eng.FastForward(ctx, window)
		if err != nil {
			return summary, fmt.Errorf("backtest fast-forward for signal %s failed: %w", sig.ID, err)
		}
		b.record(summary, closed)

		// Skip outer candles the fast-forward already consumed.
		for i+1 < len(klines) && !klines[i+1].CloseTime.After(closed.ClosedAt) {
			i++
		}
	}

	b.logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"ticks": summary.Ticks, "opened": summary.Opened, "closed": summary.Closed,
		"wins": summary.Wins, "losses": summary.Losses, "timeouts": summary.Timeouts,
		"totalPnlPercent": summary.TotalPNLPercent,
	})
	return summary, nil
}

func (b *Backtest) record(summary *Summary, res *domain.TickResult) {
	summary.Closed++
	summary.TotalPNLPercent += res.PNLPercent
	switch res.CloseReason {
	case domain.CloseReasonTakeProfit:
		summary.Wins++
	case domain.CloseReasonStopLoss:
		summary.Losses++
	case domain.CloseReasonTimeout:
		summary.Timeouts++
	}

	// Drop-oldest: a slow or absent consumer never stalls the replay.
	for {
		select {
		case b.results <- res:
			return
		default:
			select {
			case <-b.results:
			default:
			}
		}
	}
}

// drainEngineErrors moves surfaced soft errors into the log so rejections
// remain visible in backtest output.
func (b *Backtest) drainEngineErrors(ctx context.Context) {
	for {
		select {
		case err := <-b.eng.Errors():
			b.logger.Debug(ctx, "Engine surfaced error during backtest", map[string]interface{}{"error": err.Error()})
		default:
			return
		}
	}
}
