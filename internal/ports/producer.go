package ports

import (
	"context"
	"time"

	"cryptoSignalBot/internal/domain"
)

// SignalProducer is the strategy-supplied source of trade proposals.
// Returning (nil, nil) means no signal this tick. Errors and panics inside
// the producer are contained by the engine and never abort the tick loop.
type SignalProducer interface {
	GetSignal(ctx context.Context, now time.Time) (*domain.SignalProposal, error)
}
