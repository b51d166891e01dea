package runner

import (
	"context"
	"fmt"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/engine"
	"cryptoSignalBot/internal/metrics"
	"cryptoSignalBot/internal/ports"
)

// Live paces one engine against the wall clock. Recovery runs before the
// first tick, so a restart resumes a persisted signal before any new
// proposal can be considered. The loop exits only on context cancellation;
// individual tick failures are logged, counted and retried next interval.
type Live struct {
	cfg     *config.Config
	eng     *engine.Engine
	logger  ports.Logger
	metrics *metrics.Metrics
	archive ports.ClosedSignalArchive
	results chan *domain.TickResult
}

// NewLive creates a live driver. The metrics and archive are optional; nil
// disables them.
func NewLive(cfg *config.Config, eng *engine.Engine, logger ports.Logger, m *metrics.Metrics, archive ports.ClosedSignalArchive) (*Live, error) {
	if cfg == nil || eng == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for live driver")
	}
	return &Live{
		cfg:     cfg,
		eng:     eng,
		logger:  logger,
		metrics: m,
		archive: archive,
		results: make(chan *domain.TickResult, cfg.MaxEventBuffer),
	}, nil
}

// Results streams every tick result, Idle included, dropping the oldest
// entry when the buffer is full.
func (l *Live) Results() <-chan *domain.TickResult {
	return l.results
}

// Run ticks until the context is cancelled.
func (l *Live) Run(ctx context.Context) error {
	defer close(l.results)

	if err := l.eng.Recover(ctx); err != nil {
		return fmt.Errorf("live driver failed to recover persisted state: %w", err)
	}

	l.logger.Info(ctx, "Live driver started", map[string]interface{}{
		"key": l.eng.Key().String(), "tickInterval": l.cfg.TickInterval.String(),
	})

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "Live driver stopping", map[string]interface{}{"key": l.eng.Key().String()})
			return nil
		case now := <-ticker.C:
			l.step(ctx, now)
		}
	}
}

func (l *Live) step(ctx context.Context, now time.Time) {
	started := time.Now()
	res, err := l.eng.Tick(ctx, now, false)
	if err != nil {
		if l.metrics != nil {
			l.metrics.ObserveTickError()
		}
		l.logger.Error(ctx, err, "Tick failed", map[string]interface{}{"key": l.eng.Key().String()})
		return
	}

	if l.metrics != nil {
		l.metrics.ObserveTick(res, time.Since(started))
	}
	l.drainEngineErrors(ctx)

	if res.Status == domain.TickClosed {
		l.archiveClose(ctx, res)
	}
	l.emit(res)
}

func (l *Live) archiveClose(ctx context.Context, res *domain.TickResult) {
	if l.archive == nil || res.Signal == nil {
		return
	}
	sig := res.Signal
	_, err := l.archive.RecordClose(ctx, &domain.ClosedSignal{
		SignalID:    sig.ID,
		Symbol:      sig.Symbol,
		StrategyID:  sig.StrategyID,
		ExchangeID:  sig.ExchangeID,
		Side:        sig.Side,
		EntryPrice:  sig.EntryPrice,
		ExitPrice:   res.Price,
		PNLPercent:  res.PNLPercent,
		CloseReason: res.CloseReason,
		OpenedAt:    sig.ActivatedAt,
		ClosedAt:    res.ClosedAt,
	})
	if err != nil {
		// The close itself already happened; a failed archive write is an
		// operational issue, not a lifecycle one.
		l.logger.Error(ctx, err, "Failed to archive closed signal", map[string]interface{}{
			"signalID": sig.ID,
		})
	}
}

func (l *Live) emit(res *domain.TickResult) {
	for {
		select {
		case l.results <- res:
			return
		default:
			select {
			case <-l.results:
			default:
			}
		}
	}
}

func (l *Live) drainEngineErrors(ctx context.Context) {
	for {
		select {
		case err := <-l.eng.Errors():
			l.logger.Warn(ctx, "Engine surfaced error", map[string]interface{}{
				"key": l.eng.Key().String(), "error": err.Error(),
			})
		default:
			return
		}
	}
}
