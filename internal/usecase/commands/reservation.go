package commands

import (
	"context"
	"log/slog"
	"time"

	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOffer        = errs.New("invalid offer")
	ErrItemNotAvailable    = errs.New("item not available")
	ErrNotOwner            = errs.New("not the reservation owner")
	ErrNotCurrent          = errs.New("reservation is not current")
	ErrReservationNotFound = errs.New("reservation not found")
	ErrConcurrencyConflict = errs.New("concurrency conflict")
	ErrStorageUnavailable  = errs.New("storage unavailable")
)

const (
	maxTxAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

type PlaceReservationParams struct {
	ItemID   uuid.UUID
	BidderID uuid.UUID
	Amount   decimal.Decimal
	Tier     reservation.BidderTier
}

type PlaceResult struct {
	Reservation *reservation.Reservation
	Delta       reservation.RankingDelta
}

type ReservationCommands interface {
	PlaceReservation(ctx context.Context, params PlaceReservationParams) (*PlaceResult, error)
	CancelReservation(ctx context.Context, reservationID, requesterID uuid.UUID) (*reservation.Reservation, error)
	SweepExpired(ctx context.Context, now time.Time, expiryWindow time.Duration) ([]*reservation.Reservation, error)
}

type reservationCommandsImpl struct {
	ledger      LedgerRepository
	emitter     EventEmitter
	invalidator StatsInvalidator
	clock       clock.Clock
	logger      *slog.Logger
}

func NewReservationCommands(
	ledger LedgerRepository,
	emitter EventEmitter,
	invalidator StatsInvalidator,
	clk clock.Clock,
	logger *slog.Logger,
) ReservationCommands {
	return &reservationCommandsImpl{
		ledger:      ledger,
		emitter:     emitter,
		invalidator: invalidator,
		clock:       clk,
		logger:      logger,
	}
}

func (u *reservationCommandsImpl) PlaceReservation(ctx context.Context, params PlaceReservationParams) (*PlaceResult, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrInvalidOffer
	}

	var result *PlaceResult
	err := u.withRetry(ctx, func(txCtx context.Context) error {
		r, txErr := u.placeTx(txCtx, params)
		if txErr != nil {
			return txErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.invalidateDelta(params.BidderID, result.Delta)

	u.logger.Info("reservation placed",
		"reservation_id", result.Reservation.ID(),
		"item_id", params.ItemID,
		"bidder_id", params.BidderID,
		"amount", params.Amount,
		"rank_position", result.Reservation.RankPosition(),
		"is_winning", result.Reservation.IsWinning())

	return result, nil
}

func (u *reservationCommandsImpl) placeTx(ctx context.Context, params PlaceReservationParams) (*PlaceResult, error) {
	it, err := u.ledger.GetItemForUpdate(ctx, params.ItemID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrItemNotAvailable
		}
		return nil, err
	}
	if !it.Reservable() || it.OwnedBy(params.BidderID) {
		return nil, ErrItemNotAvailable
	}

	current, err := u.ledger.CurrentByItem(ctx, params.ItemID)
	if err != nil {
		return nil, err
	}
	before := reservation.Rank(current)

	now := u.clock.Now()
	newRes, err := reservation.New(params.ItemID, params.BidderID, params.Amount, params.Tier, now)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOffer)
	}

	// A new bid retires the bidder's own prior reservation; it never
	// stacks. A re-bid must also strictly exceed the prior offer.
	contenders := make([]*reservation.Reservation, 0, len(current)+1)
	for _, r := range current {
		if r.BidderID() != params.BidderID {
			contenders = append(contenders, r)
			continue
		}
		if params.Amount.LessThanOrEqual(r.Amount()) {
			return nil, ErrInvalidOffer
		}
		if err := r.Supersede(newRes.ID(), now); err != nil {
			return nil, err
		}
		if err := u.ledger.Update(ctx, r); err != nil {
			return nil, err
		}
	}
	contenders = append(contenders, newRes)

	if err := u.ledger.Insert(ctx, newRes); err != nil {
		return nil, err
	}

	delta, err := u.rerank(ctx, params.ItemID, before, contenders, now)
	if err != nil {
		return nil, err
	}

	if err := u.emitter.EmitDelta(ctx, delta, newRes); err != nil {
		return nil, err
	}

	return &PlaceResult{Reservation: newRes, Delta: delta}, nil
}

func (u *reservationCommandsImpl) CancelReservation(ctx context.Context, reservationID, requesterID uuid.UUID) (*reservation.Reservation, error) {
	var cancelled *reservation.Reservation
	var delta reservation.RankingDelta

	err := u.withRetry(ctx, func(txCtx context.Context) error {
		res, txErr := u.ledger.FindByID(txCtx, reservationID)
		if txErr != nil {
			if infra.IsKind(txErr, infra.KindNotFound) {
				return ErrReservationNotFound
			}
			return txErr
		}
		if res.BidderID() != requesterID {
			return ErrNotOwner
		}

		// Re-read under the item lock so a concurrent bid cannot race
		// the authorization check above.
		if _, txErr = u.ledger.GetItemForUpdate(txCtx, res.ItemID()); txErr != nil {
			return txErr
		}

		current, txErr := u.ledger.CurrentByItem(txCtx, res.ItemID())
		if txErr != nil {
			return txErr
		}
		before := reservation.Rank(current)

		var target *reservation.Reservation
		remaining := make([]*reservation.Reservation, 0, len(current))
		for _, r := range current {
			if r.ID() == reservationID {
				target = r
				continue
			}
			remaining = append(remaining, r)
		}
		if target == nil {
			return ErrNotCurrent
		}

		now := u.clock.Now()
		if txErr = target.Cancel(now); txErr != nil {
			return ErrNotCurrent
		}
		if txErr = u.ledger.Update(txCtx, target); txErr != nil {
			return txErr
		}

		d, txErr := u.rerank(txCtx, res.ItemID(), before, remaining, now)
		if txErr != nil {
			return txErr
		}

		if txErr = u.emitter.EmitDelta(txCtx, d, target); txErr != nil {
			return txErr
		}

		cancelled = target
		delta = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.invalidateDelta(requesterID, delta)

	u.logger.Info("reservation cancelled",
		"reservation_id", cancelled.ID(),
		"item_id", cancelled.ItemID(),
		"bidder_id", cancelled.BidderID())

	return cancelled, nil
}

// SweepExpired retires stale non-winning current reservations. The
// winner of an item is never expired, so an item can always resolve.
// Items are processed independently: one failing item is logged and
// skipped so it cannot stall expiry for everyone else.
func (u *reservationCommandsImpl) SweepExpired(ctx context.Context, now time.Time, expiryWindow time.Duration) ([]*reservation.Reservation, error) {
	cutoff := now.Add(-expiryWindow)

	itemIDs, err := u.ledger.ItemIDsWithStale(ctx, cutoff)
	if err != nil {
		return nil, errs.Mark(err, ErrStorageUnavailable)
	}

	var expired []*reservation.Reservation
	for _, itemID := range itemIDs {
		rows, sweepErr := u.sweepItem(ctx, itemID, cutoff, now)
		if sweepErr != nil {
			u.logger.Error("expiry sweep failed for item, skipping",
				"item_id", itemID, "error", sweepErr)
			continue
		}
		expired = append(expired, rows...)
	}

	for _, r := range expired {
		u.invalidator.Invalidate(r.BidderID())
	}

	u.logger.Info("expiry sweep completed",
		"items_scanned", len(itemIDs), "reservations_expired", len(expired))

	return expired, nil
}

func (u *reservationCommandsImpl) sweepItem(ctx context.Context, itemID uuid.UUID, cutoff, now time.Time) ([]*reservation.Reservation, error) {
	var expired []*reservation.Reservation

	err := u.ledger.WithTx(ctx, func(txCtx context.Context) error {
		if _, txErr := u.ledger.GetItemForUpdate(txCtx, itemID); txErr != nil {
			return txErr
		}

		current, txErr := u.ledger.CurrentByItem(txCtx, itemID)
		if txErr != nil {
			return txErr
		}
		before := reservation.Rank(current)

		remaining := make([]*reservation.Reservation, 0, len(current))
		for _, r := range current {
			if !r.StaleSince(cutoff) {
				remaining = append(remaining, r)
				continue
			}
			if txErr = r.Expire(now); txErr != nil {
				return txErr
			}
			if txErr = u.ledger.Update(txCtx, r); txErr != nil {
				return txErr
			}
			if txErr = u.emitter.EmitExpired(txCtx, r); txErr != nil {
				return txErr
			}
			expired = append(expired, r)
		}
		if len(expired) == 0 {
			return nil
		}

		// Expiring challengers never changes the winner, only the
		// positions below it.
		_, txErr = u.rerank(txCtx, itemID, before, remaining, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// rerank computes the final ranking for the item's surviving current
// set, dethrones a winner outranked by another bidder, persists every
// changed placement, and returns the winner delta against before.
//
// Flag updates are ordered so the partial unique index on is_winning is
// never violated mid-transaction: the row losing the flag is written
// before the row gaining it.
func (u *reservationCommandsImpl) rerank(
	ctx context.Context,
	itemID uuid.UUID,
	before []reservation.Placement,
	contenders []*reservation.Reservation,
	now time.Time,
) (reservation.RankingDelta, error) {
	placements := reservation.Rank(contenders)
	winner := reservation.Winner(placements)

	// A dethroned winner leaves the current set entirely: it is
	// superseded by the reservation that outranked it and no longer
	// competes, unlike challengers that never held the top spot.
	prev := reservation.Winner(before)
	if prev != nil && winner != nil &&
		prev.ReservationID != winner.ReservationID &&
		prev.BidderID != winner.BidderID {
		survivors := make([]*reservation.Reservation, 0, len(contenders))
		for _, r := range contenders {
			if r.ID() != prev.ReservationID {
				survivors = append(survivors, r)
				continue
			}
			if err := r.Supersede(winner.ReservationID, now); err != nil {
				return reservation.RankingDelta{}, err
			}
			if err := u.ledger.Update(ctx, r); err != nil {
				return reservation.RankingDelta{}, err
			}
		}
		contenders = survivors
		placements = reservation.Rank(contenders)
		winner = reservation.Winner(placements)
	}

	byID := make(map[uuid.UUID]*reservation.Reservation, len(contenders))
	for _, r := range contenders {
		byID[r.ID()] = r
	}

	// Clear flags top-down before assigning the new winner.
	for i := len(placements) - 1; i >= 0; i-- {
		p := placements[i]
		r := byID[p.ReservationID]
		if r.RankPosition() == p.Position && r.IsWinning() == p.Winning {
			continue
		}
		r.ApplyPlacement(p.Position, p.Winning)
		if err := u.ledger.Update(ctx, r); err != nil {
			return reservation.RankingDelta{}, err
		}
	}

	return reservation.RankingDelta{ItemID: itemID, Previous: prev, Current: winner}, nil
}

// withRetry serializes the mutation per item via the row lock and
// retries transient conflicts with linear backoff before surfacing
// ErrConcurrencyConflict to the caller.
func (u *reservationCommandsImpl) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := u.ledger.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !infra.IsKind(err, infra.KindSerialization) && !infra.IsKind(err, infra.KindDuplicateKey) {
			if infra.IsKind(err, infra.KindDBFailure) {
				return errs.Mark(err, ErrStorageUnavailable)
			}
			return err
		}
		lastErr = err
		u.logger.Warn("transaction conflict, retrying",
			"attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return errs.Mark(lastErr, ErrConcurrencyConflict)
}

func (u *reservationCommandsImpl) invalidateDelta(actor uuid.UUID, delta reservation.RankingDelta) {
	u.invalidator.Invalidate(actor)
	if delta.Previous != nil {
		u.invalidator.Invalidate(delta.Previous.BidderID)
	}
	if delta.Current != nil {
		u.invalidator.Invalidate(delta.Current.BidderID)
	}
}
