package commands

import (
	"context"
	"time"

	"reservation-engine/internal/domain/item"
	"reservation-engine/internal/domain/reservation"

	"github.com/google/uuid"
)

// LedgerRepository is the write side of the reservation ledger. All
// mutating methods must be called inside WithTx; GetItemForUpdate takes
// the per-item row lock that serializes competing writers, so two bids
// on different items never block each other.
type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItemForUpdate(ctx context.Context, itemID uuid.UUID) (*item.Item, error)
	CurrentByItem(ctx context.Context, itemID uuid.UUID) ([]*reservation.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	Insert(ctx context.Context, res *reservation.Reservation) error
	Update(ctx context.Context, res *reservation.Reservation) error
	ItemIDsWithStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// EventEmitter produces the typed notification events for a transition.
// Implementations must persist within the transaction carried on ctx.
type EventEmitter interface {
	EmitDelta(ctx context.Context, delta reservation.RankingDelta, causedBy *reservation.Reservation) error
	EmitExpired(ctx context.Context, res *reservation.Reservation) error
}

// StatsInvalidator drops cached projector state for a bidder after a
// mutation touching them commits.
type StatsInvalidator interface {
	Invalidate(bidderID uuid.UUID)
}
