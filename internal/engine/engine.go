// Package engine owns the per-key signal lifecycle: proposal admission,
// scheduled activation, active monitoring, closure and crash recovery.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/pnl"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/validate"
)

// Engine drives one signal's lifecycle for a single (symbol, strategy,
// exchange) key. Ticks are strictly sequential per engine: the mutex
// guarantees no tick begins before the previous one's state mutation and
// persistence write have completed.
type Engine struct {
	cfg      *config.Config
	key      domain.Key
	logger   ports.Logger
	data     ports.DataSource
	store    ports.SignalStore
	risk     ports.RiskController
	producer ports.SignalProducer

	mu             sync.Mutex
	scheduled      *domain.Signal
	active         *domain.Signal
	lastPrice      float64
	lastProposalAt time.Time

	stopped     atomic.Bool
	recoverOnce sync.Once
	errs        chan error
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Logger   ports.Logger
	Data     ports.DataSource
	Store    ports.SignalStore
	Risk     ports.RiskController
	Producer ports.SignalProducer
}

// New creates an engine for one key.
func New(cfg *config.Config, key domain.Key, deps Deps) (*Engine, error) {
	if cfg == nil || deps.Logger == nil || deps.Data == nil || deps.Store == nil || deps.Risk == nil || deps.Producer == nil {
		return nil, fmt.Errorf("missing required dependencies for engine")
	}
	if key.Symbol == "" || key.StrategyID == "" || key.ExchangeID == "" {
		return nil, fmt.Errorf("engine key must be fully populated, got %q", key.String())
	}
	return &Engine{
		cfg:      cfg,
		key:      key,
		logger:   deps.Logger,
		data:     deps.Data,
		store:    deps.Store,
		risk:     deps.Risk,
		producer: deps.Producer,
		errs:     make(chan error, cfg.MaxErrorEvents),
	}, nil
}

// Key returns the composite key this engine is addressed by.
func (e *Engine) Key() domain.Key {
	return e.key
}

// Errors exposes the bounded error side channel. Producer failures,
// rejections and retryable fetch errors surface here without aborting the
// tick loop; when the buffer is full the oldest entry is dropped.
func (e *Engine) Errors() <-chan error {
	return e.errs
}

// Stop suppresses new proposal generation on subsequent ticks. Advisory,
// not preemptive: a currently active signal keeps being monitored until it
// closes naturally.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	return e.stopped.Load()
}

// Recover loads any durably persisted scheduled or active signal for this
// key and resumes monitoring it. It runs its body exactly once per engine
// instance, so a double start cannot register the position with risk twice.
func (e *Engine) Recover(ctx context.Context) error {
	var recoverErr error
	e.recoverOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		sched, err := e.store.ReadScheduled(ctx, e.key)
		if err != nil {
			recoverErr = fmt.Errorf("%w: %v", ports.ErrStoreReadFailed, err)
			return
		}
		act, err := e.store.ReadActive(ctx, e.key)
		if err != nil {
			recoverErr = fmt.Errorf("%w: %v", ports.ErrStoreReadFailed, err)
			return
		}

		if sched != nil {
			e.scheduled = sched
			e.logger.Info(ctx, "Recovered scheduled signal", map[string]interface{}{
				"key": e.key.String(), "signalID": sched.ID, "entryPrice": sched.EntryPrice,
			})
		}
		if act != nil {
			e.active = act
			e.risk.RegisterOpenPosition(ctx, e.key)
			e.logger.Info(ctx, "Recovered active signal", map[string]interface{}{
				"key": e.key.String(), "signalID": act.ID,
				"takeProfit": act.TakeProfit, "stopLoss": act.StopLoss,
			})
		}
	})
	return recoverErr
}

// Tick advances the lifecycle machine by one step at the given instant and
// returns the resulting lifecycle event. A non-nil error is a hard failure
// for this tick (blind-spot monitoring of an open position, or a durability
// fault); expected failures such as rejections, producer errors and
// retryable fetch failures with no open signal degrade to an Idle result
// with the cause surfaced on the error channel.
func (e *Engine) Tick(ctx context.Context, now time.Time, isBacktest bool) (*domain.TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.referencePrice(ctx)
	if err != nil {
		if e.active != nil {
			// Retries exhausted while a position is being monitored: this
			// must be surfaced, never silently skipped.
			return nil, fmt.Errorf("price fetch failed while monitoring signal %s: %w", e.active.ID, err)
		}
		e.surface(err)
		return e.idleResult(0), nil
	}

	if anomaly := e.checkAnomaly(price); anomaly != nil {
		e.surface(anomaly)
		if e.active != nil {
			// Hold the position on the last trusted price rather than act
			// on a spike.
			return e.activeResult(e.lastPrice), nil
		}
		return e.idleResult(e.lastPrice), nil
	}
	e.lastPrice = price

	if e.active != nil {
		return e.tickActive(ctx, now, price)
	}
	if e.scheduled != nil {
		return e.tickScheduled(ctx, now, price)
	}
	return e.tickIdle(ctx, now, price, isBacktest)
}

// tickIdle consults the producer (throttled), runs risk admission and
// validation, and persists the freshly admitted signal.
func (e *Engine) tickIdle(ctx context.Context, now time.Time, price float64, isBacktest bool) (*domain.TickResult, error) {
	if e.stopped.Load() {
		return e.idleResult(price), nil
	}

	// Throttle: the producer is consulted at most once per configured
	// interval, regardless of tick pacing.
	if !e.lastProposalAt.IsZero() && now.Sub(e.lastProposalAt) < e.cfg.ProposalInterval {
		return e.idleResult(price), nil
	}
	e.lastProposalAt = now

	proposal, err := e.callProducer(ctx, now)
	if err != nil {
		e.surface(fmt.Errorf("%w: %v", ports.ErrProducerFailed, err))
		return e.idleResult(price), nil
	}
	if proposal == nil {
		return e.idleResult(price), nil
	}

	if err := e.risk.CheckSignal(ctx, proposal, e.key); err != nil {
		e.surface(err)
		e.logger.Debug(ctx, "Proposal rejected by risk controller", map[string]interface{}{
			"key": e.key.String(), "reason": err.Error(),
		})
		return e.idleResult(price), nil
	}

	sig, scheduled := e.resolveProposal(proposal, price, now)

	if err := validate.Signal(sig, price, scheduled, e.limits()); err != nil {
		e.surface(err)
		e.logger.Debug(ctx, "Proposal rejected by validator", map[string]interface{}{
			"key": e.key.String(), "reason": err.Error(),
		})
		return e.idleResult(price), nil
	}

	if scheduled {
		if err := e.store.WriteScheduled(ctx, e.key, sig); err != nil {
			// An unpersisted signal is not crash-safe; abort the admission.
			e.surface(fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err))
			return e.idleResult(price), nil
		}
		e.scheduled = sig
		e.logger.Info(ctx, "Signal scheduled, awaiting entry price", map[string]interface{}{
			"key": e.key.String(), "signalID": sig.ID, "entryPrice": sig.EntryPrice, "currentPrice": price,
		})
		// Scheduled admission reports as Idle until activation.
		return e.idleResult(price), nil
	}

	return e.open(ctx, sig, price)
}

// tickScheduled watches for the entry price being crossed and cancels the
// signal when the scheduling deadline passes un-activated.
func (e *Engine) tickScheduled(ctx context.Context, now time.Time, price float64) (*domain.TickResult, error) {
	sig := e.scheduled

	if sig.EntryCrossed(price) {
		if err := e.store.DeleteScheduled(ctx, e.key); err != nil {
			e.surface(fmt.Errorf("%w: %v", ports.ErrStoreDeleteFailed, err))
		}
		e.scheduled = nil
		sig.ActivatedAt = now
		sig.PendingEntry = false
		return e.open(ctx, sig, price)
	}

	timeout := time.Duration(e.cfg.ScheduleTimeoutMinutes) * time.Minute
	if !now.Before(sig.ScheduleDeadline(timeout)) {
		if err := e.store.DeleteScheduled(ctx, e.key); err != nil {
			e.surface(fmt.Errorf("%w: %v", ports.ErrStoreDeleteFailed, err))
		}
		e.scheduled = nil
		e.logger.Info(ctx, "Scheduled signal expired before activation", map[string]interface{}{
			"key": e.key.String(), "signalID": sig.ID, "entryPrice": sig.EntryPrice,
			"reason": domain.CloseReasonCancelled,
		})
		res := e.idleResult(price)
		res.CloseReason = domain.CloseReasonCancelled
		return res, nil
	}

	return e.idleResult(price), nil
}

// tickActive evaluates the close conditions in their fixed order:
// take-profit, stop-loss, lifetime timeout.
func (e *Engine) tickActive(ctx context.Context, now time.Time, price float64) (*domain.TickResult, error) {
	sig := e.active

	if tpCrossed(sig, price) {
		return e.close(ctx, sig.TakeProfit, domain.CloseReasonTakeProfit, now)
	}
	if slCrossed(sig, price) {
		return e.close(ctx, sig.StopLoss, domain.CloseReasonStopLoss, now)
	}
	if !now.Before(sig.Deadline()) {
		return e.close(ctx, price, domain.CloseReasonTimeout, now)
	}

	return e.activeResult(price), nil
}

// open registers the position with risk and persists the active record.
// A failed durable write aborts the open: proceeding would leave a
// position that a restart cannot recover.
func (e *Engine) open(ctx context.Context, sig *domain.Signal, price float64) (*domain.TickResult, error) {
	e.risk.RegisterOpenPosition(ctx, e.key)

	if err := e.store.WriteActive(ctx, e.key, sig); err != nil {
		e.risk.ReleasePosition(ctx, e.key)
		e.surface(fmt.Errorf("%w: %v", ports.ErrStoreWriteFailed, err))
		return nil, fmt.Errorf("aborting open of signal %s, durable write failed: %w", sig.ID, err)
	}

	e.active = sig
	e.logger.Info(ctx, "Signal opened", map[string]interface{}{
		"key": e.key.String(), "signalID": sig.ID, "side": sig.Side,
		"entryPrice": sig.EntryPrice, "takeProfit": sig.TakeProfit, "stopLoss": sig.StopLoss,
	})

	return &domain.TickResult{
		Status:     domain.TickOpened,
		Symbol:     e.key.Symbol,
		StrategyID: e.key.StrategyID,
		ExchangeID: e.key.ExchangeID,
		Price:      price,
		Signal:     sig,
	}, nil
}

// close settles the PNL, clears the durable record and releases the risk slot.
func (e *Engine) close(ctx context.Context, exitPrice float64, reason domain.CloseReason, at time.Time) (*domain.TickResult, error) {
	sig := e.active

	realized := pnl.Settle(sig.Side, sig.EntryPrice, exitPrice, e.cfg.SlippagePct, e.cfg.FeePct)

	if err := e.store.DeleteActive(ctx, e.key); err != nil {
		// The position is closed regardless; the stale record is surfaced
		// so an operator can reconcile it.
		e.surface(fmt.Errorf("%w: %v", ports.ErrStoreDeleteFailed, err))
	}
	e.risk.ReleasePosition(ctx, e.key)
	e.active = nil

	e.logger.Info(ctx, "Signal closed", map[string]interface{}{
		"key": e.key.String(), "signalID": sig.ID, "reason": reason,
		"exitPrice": exitPrice, "pnlPercent": realized,
	})

	return &domain.TickResult{
		Status:      domain.TickClosed,
		Symbol:      e.key.Symbol,
		StrategyID:  e.key.StrategyID,
		ExchangeID:  e.key.ExchangeID,
		Price:       exitPrice,
		Signal:      sig,
		PNLPercent:  realized,
		CloseReason: reason,
		ClosedAt:    at,
	}, nil
}

// resolveProposal augments a proposal into a full signal, generating an ID
// when absent and resolving a market order to the current reference price.
// The second return value reports whether the signal must be scheduled.
func (e *Engine) resolveProposal(p *domain.SignalProposal, price float64, now time.Time) (*domain.Signal, bool) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	entry := p.EntryPrice
	market := entry == 0
	if market {
		entry = price
	}

	sig := &domain.Signal{
		ID:                 id,
		Symbol:             e.key.Symbol,
		StrategyID:         e.key.StrategyID,
		ExchangeID:         e.key.ExchangeID,
		Side:               p.Side,
		EntryPrice:         entry,
		TakeProfit:         p.TakeProfit,
		StopLoss:           p.StopLoss,
		OriginalTakeProfit: p.TakeProfit,
		OriginalStopLoss:   p.StopLoss,
		LifetimeMinutes:    p.LifetimeMinutes,
		CreatedAt:          now,
		Note:               p.Note,
	}

	// A limit entry the market has already reached opens immediately and
	// is never transiently scheduled.
	if market || sig.EntryCrossed(price) {
		sig.ActivatedAt = now
		return sig, false
	}

	sig.PendingEntry = true
	return sig, true
}

// callProducer invokes the strategy's signal source with panic containment:
// a panicking producer is an error, never a crashed driver.
func (e *Engine) callProducer(ctx context.Context, now time.Time) (proposal *domain.SignalProposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			proposal = nil
			err = fmt.Errorf("producer panicked: %v", r)
		}
	}()
	return e.producer.GetSignal(ctx, now)
}

// referencePrice fetches the current reference price with a bounded number
// of fixed-delay retries.
func (e *Engine) referencePrice(ctx context.Context) (float64, error) {
	delay := &backoff.Backoff{
		Min:    e.cfg.FetchRetryDelay,
		Max:    e.cfg.FetchRetryDelay,
		Factor: 1,
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.FetchRetryCount; attempt++ {
		price, err := e.data.AveragePrice(ctx, e.key.Symbol)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if attempt < e.cfg.FetchRetryCount {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay.Duration()):
			}
		}
	}
	return 0, fmt.Errorf("%w after %d attempts: %v", ports.ErrRetriesExhausted, e.cfg.FetchRetryCount+1, lastErr)
}

// checkAnomaly flags a reference price that jumped more than the configured
// factor from the last observed one.
func (e *Engine) checkAnomaly(price float64) error {
	if e.lastPrice <= 0 {
		return nil
	}
	if price > e.lastPrice*e.cfg.AnomalyFactor || price < e.lastPrice/e.cfg.AnomalyFactor {
		return fmt.Errorf("%w: last=%v current=%v factor=%v",
			ports.ErrPriceAnomaly, e.lastPrice, price, e.cfg.AnomalyFactor)
	}
	return nil
}

func (e *Engine) limits() validate.Limits {
	return validate.Limits{
		MinTakeProfitPct:   e.cfg.MinTakeProfitPct,
		MinStopLossPct:     e.cfg.MinStopLossPct,
		MaxStopLossPct:     e.cfg.MaxStopLossPct,
		MaxLifetimeMinutes: e.cfg.MaxLifetimeMinutes,
	}
}

func (e *Engine) idleResult(price float64) *domain.TickResult {
	return &domain.TickResult{
		Status:     domain.TickIdle,
		Symbol:     e.key.Symbol,
		StrategyID: e.key.StrategyID,
		ExchangeID: e.key.ExchangeID,
		Price:      price,
	}
}

func (e *Engine) activeResult(price float64) *domain.TickResult {
	sig := e.active
	return &domain.TickResult{
		Status:      domain.TickActive,
		Symbol:      e.key.Symbol,
		StrategyID:  e.key.StrategyID,
		ExchangeID:  e.key.ExchangeID,
		Price:       price,
		Signal:      sig,
		PercentToTP: distancePct(price, sig.TakeProfit),
		PercentToSL: distancePct(price, sig.StopLoss),
	}
}

// surface pushes onto the bounded error channel, dropping the oldest entry
// when full so the stream never blocks a tick.
func (e *Engine) surface(err error) {
	for {
		select {
		case e.errs <- err:
			return
		default:
			select {
			case <-e.errs:
			default:
			}
		}
	}
}

func tpCrossed(sig *domain.Signal, price float64) bool {
	if sig.Side == domain.Long {
		return price >= sig.TakeProfit
	}
	return price <= sig.TakeProfit
}

func slCrossed(sig *domain.Signal, price float64) bool {
	if sig.Side == domain.Long {
		return price <= sig.StopLoss
	}
	return price >= sig.StopLoss
}

func distancePct(price, level float64) float64 {
	if price <= 0 {
		return 0
	}
	d := level - price
	if d < 0 {
		d = -d
	}
	return d / price * 100.0
}
