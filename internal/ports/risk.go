package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// RiskController is the portfolio-level admission contract. CheckSignal runs
// before a proposal is validated or persisted; Register/Release are called
// exactly once per open/close transition.
type RiskController interface {
	// CheckSignal admits or rejects a proposal for the given key. A nil
	// error means admitted; rejections wrap ErrRiskRejected with a
	// human-readable reason.
	CheckSignal(ctx context.Context, proposal *domain.SignalProposal, key domain.Key) error

	// RegisterOpenPosition records that the key now holds an open position.
	RegisterOpenPosition(ctx context.Context, key domain.Key)

	// ReleasePosition records that the key's position has closed.
	ReleasePosition(ctx context.Context, key domain.Key)
}
