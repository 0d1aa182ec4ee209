package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount = errors.New("offer amount must be positive")
	ErrNotActive         = errors.New("reservation is not active")
)

// Reservation is a bidder's declared offer on an item. Rows are
// append-mostly: a terminal row keeps its amount and supersession link
// forever; only active rows have their ranking flags rewritten.
type Reservation struct {
	id           uuid.UUID
	itemID       uuid.UUID
	bidderID     uuid.UUID
	amount       decimal.Decimal
	tier         BidderTier
	status       Status
	isCurrent    bool
	isWinning    bool
	rankPosition int
	previousRank int
	createdAt    time.Time
	supersededAt *time.Time
	supersededBy *uuid.UUID
}

// New creates an active, current reservation. The caller is responsible
// for ranking and persistence.
func New(itemID, bidderID uuid.UUID, amount decimal.Decimal, tier BidderTier, now time.Time) (*Reservation, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	return &Reservation{
		id:        uuid.New(),
		itemID:    itemID,
		bidderID:  bidderID,
		amount:    amount,
		tier:      tier,
		status:    StatusActive,
		isCurrent: true,
		createdAt: now,
	}, nil
}

// Reconstruct rebuilds a reservation from stored state.
func Reconstruct(
	id, itemID, bidderID uuid.UUID,
	amount decimal.Decimal,
	tier BidderTier,
	status Status,
	isCurrent, isWinning bool,
	rankPosition, previousRank int,
	createdAt time.Time,
	supersededAt *time.Time,
	supersededBy *uuid.UUID,
) *Reservation {
	return &Reservation{
		id:           id,
		itemID:       itemID,
		bidderID:     bidderID,
		amount:       amount,
		tier:         tier,
		status:       status,
		isCurrent:    isCurrent,
		isWinning:    isWinning,
		rankPosition: rankPosition,
		previousRank: previousRank,
		createdAt:    createdAt,
		supersededAt: supersededAt,
		supersededBy: supersededBy,
	}
}

func (r *Reservation) ID() uuid.UUID           { return r.id }
func (r *Reservation) ItemID() uuid.UUID       { return r.itemID }
func (r *Reservation) BidderID() uuid.UUID     { return r.bidderID }
func (r *Reservation) Amount() decimal.Decimal { return r.amount }
func (r *Reservation) Tier() BidderTier        { return r.tier }
func (r *Reservation) Status() Status          { return r.status }
func (r *Reservation) IsCurrent() bool         { return r.isCurrent }
func (r *Reservation) IsWinning() bool         { return r.isWinning }
func (r *Reservation) RankPosition() int       { return r.rankPosition }
func (r *Reservation) PreviousRank() int       { return r.previousRank }
func (r *Reservation) CreatedAt() time.Time    { return r.createdAt }
func (r *Reservation) SupersededAt() *time.Time { return r.supersededAt }
func (r *Reservation) SupersededBy() *uuid.UUID { return r.supersededBy }

func (r *Reservation) IsActive() bool { return r.status == StatusActive }

// Supersede retires the reservation because byID now outranks it. The
// link points only forward in time, never backward, so the supersession
// history forms an acyclic append log.
func (r *Reservation) Supersede(byID uuid.UUID, at time.Time) error {
	if r.status != StatusActive {
		return ErrNotActive
	}
	r.status = StatusSuperseded
	r.isCurrent = false
	r.isWinning = false
	by := byID
	t := at
	r.supersededBy = &by
	r.supersededAt = &t
	return nil
}

// Cancel withdraws the reservation at the owner's request.
func (r *Reservation) Cancel(at time.Time) error {
	if r.status != StatusActive || !r.isCurrent {
		return ErrNotActive
	}
	r.status = StatusCancelled
	r.isCurrent = false
	r.isWinning = false
	t := at
	r.supersededAt = &t
	return nil
}

// Expire moves a stale challenger out of the current set. Winners are
// never expired; the sweep enforces that before calling.
func (r *Reservation) Expire(at time.Time) error {
	if r.status != StatusActive || r.isWinning {
		return ErrNotActive
	}
	r.status = StatusExpired
	r.isCurrent = false
	t := at
	r.supersededAt = &t
	return nil
}

// ApplyPlacement records the rank computed for this reservation,
// remembering the prior position when it changes.
func (r *Reservation) ApplyPlacement(position int, winning bool) {
	if r.rankPosition != 0 && r.rankPosition != position {
		r.previousRank = r.rankPosition
	}
	r.rankPosition = position
	r.isWinning = winning
}

// StaleSince reports whether the reservation was created before the
// cutoff and is an expirable challenger (current but not winning).
func (r *Reservation) StaleSince(cutoff time.Time) bool {
	return r.status == StatusActive && r.isCurrent && !r.isWinning && r.createdAt.Before(cutoff)
}
