package domain

import "time"

// SignalProposal is what a strategy hands to the engine: a candidate trade
// that has not yet been validated or persisted. It is transient; the engine
// either turns it into a Signal or discards it with a rejection reason.
type SignalProposal struct {
	ID              string       // Optional; generated when empty
	Side            PositionSide `validate:"required,oneof=long short"`
	EntryPrice      float64      // 0 means market order at the current reference price
	TakeProfit      float64      `validate:"required"`
	StopLoss        float64      `validate:"required"`
	LifetimeMinutes int          `validate:"required"`
	Note            string
}

// Signal is the durable record of an admitted trade. Once written it is
// mutated only by the engine in response to tick or trailing events, and it
// is removed from storage on close or cancellation.
type Signal struct {
	ID         string       `json:"id" validate:"required"`
	Symbol     string       `json:"symbol" validate:"required"`
	StrategyID string       `json:"strategy_id" validate:"required"`
	ExchangeID string       `json:"exchange_id" validate:"required"`
	Side       PositionSide `json:"side" validate:"required,oneof=long short"`

	EntryPrice float64 `json:"entry_price"`

	// Effective levels are the ones monitored each tick; trailing
	// adjustments move them while the originals stay untouched.
	TakeProfit         float64 `json:"take_profit"`
	StopLoss           float64 `json:"stop_loss"`
	OriginalTakeProfit float64 `json:"original_take_profit"`
	OriginalStopLoss   float64 `json:"original_stop_loss"`

	LifetimeMinutes int       `json:"lifetime_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	ActivatedAt     time.Time `json:"activated_at"`
	PendingEntry    bool      `json:"pending_entry"`
	Note            string    `json:"note,omitempty"`
}

// Key returns the engine key this signal belongs to.
func (s *Signal) Key() Key {
	return Key{Symbol: s.Symbol, StrategyID: s.StrategyID, ExchangeID: s.ExchangeID}
}

// Deadline returns the wall-clock (or simulated) instant at which the
// active signal times out.
func (s *Signal) Deadline() time.Time {
	return s.ActivatedAt.Add(time.Duration(s.LifetimeMinutes) * time.Minute)
}

// ScheduleDeadline returns the instant at which a scheduled signal expires
// if its entry price is never reached.
func (s *Signal) ScheduleDeadline(timeout time.Duration) time.Time {
	return s.CreatedAt.Add(timeout)
}

// EntryCrossed reports whether the given reference price has reached the
// limit entry level: a long waits for the price to drop to the entry, a
// short waits for it to rise.
func (s *Signal) EntryCrossed(price float64) bool {
	if s.Side == Long {
		return price <= s.EntryPrice
	}
	return price >= s.EntryPrice
}

// TickStatus identifies the kind of result produced by one engine tick.
type TickStatus string

const (
	TickIdle   TickStatus = "idle"
	TickOpened TickStatus = "opened"
	TickActive TickStatus = "active"
	TickClosed TickStatus = "closed"
)

// TickResult is the tagged outcome of one engine tick. Which fields are
// populated depends on Status: Signal from Opened onward, the progress
// percentages for Active, PNL and close details for Closed. An Idle
// result carries CloseReasonCancelled when a scheduled signal just
// expired without activating.
type TickResult struct {
	Status     TickStatus
	Symbol     string
	StrategyID string
	ExchangeID string
	Price      float64

	Signal      *Signal
	PercentToTP float64
	PercentToSL float64

	PNLPercent  float64
	CloseReason CloseReason
	ClosedAt    time.Time
}

// ClosedSignal is the archive row recorded for every completed signal.
type ClosedSignal struct {
	ID          int64
	SignalID    string
	Symbol      string
	StrategyID  string
	ExchangeID  string
	Side        PositionSide
	EntryPrice  float64
	ExitPrice   float64
	PNLPercent  float64
	CloseReason CloseReason
	OpenedAt    time.Time
	ClosedAt    time.Time
}
