package domain

import "fmt"

// PositionSide represents the direction of a signal (long or short).
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// IsValid reports whether the side is one of the two allowed values.
func (s PositionSide) IsValid() bool {
	return s == Long || s == Short
}

// CloseReason indicates why a signal was closed or cancelled.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "take-profit"
	CloseReasonStopLoss   CloseReason = "stop-loss"
	CloseReasonTimeout    CloseReason = "timeout"
	CloseReasonCancelled  CloseReason = "cancelled"
)

// Key addresses one engine instance: one symbol traded by one strategy on
// one exchange. At most one non-terminal signal exists per key.
type Key struct {
	Symbol     string
	StrategyID string
	ExchangeID string
}

// String renders the key in the form used for durable storage file names
// and cache lookups.
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%s", k.Symbol, k.StrategyID, k.ExchangeID)
}
