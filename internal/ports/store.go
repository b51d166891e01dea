package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// SignalStore is the durable persistence contract for the one scheduled or
// active signal a key may hold. Reads return (nil, nil) when no record
// exists. Writes must be atomic: a crash mid-write leaves the prior valid
// record intact, never a corrupted partial one.
type SignalStore interface {
	ReadScheduled(ctx context.Context, key domain.Key) (*domain.Signal, error)
	WriteScheduled(ctx context.Context, key domain.Key, sig *domain.Signal) error
	DeleteScheduled(ctx context.Context, key domain.Key) error

	ReadActive(ctx context.Context, key domain.Key) (*domain.Signal, error)
	WriteActive(ctx context.Context, key domain.Key, sig *domain.Signal) error
	DeleteActive(ctx context.Context, key domain.Key) error
}
