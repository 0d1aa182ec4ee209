// Package notify is the event emitter: it translates ranking
// transitions into typed notification events and hands them to a job
// store that shares the mutation's transaction. A job row commits if
// and only if the transition commits, which gives the external notifier
// at-least-once delivery without a separate outbox sweep.
package notify

import (
	"context"
	"log/slog"

	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/pkg/clock"
)

// JobStore persists events for the external delivery system. Append
// must join the transaction carried on ctx when one is open.
type JobStore interface {
	Append(ctx context.Context, ev Event) error
}

type Emitter struct {
	jobs   JobStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewEmitter(jobs JobStore, clk clock.Clock, logger *slog.Logger) *Emitter {
	return &Emitter{jobs: jobs, clock: clk, logger: logger}
}

// EmitDelta emits the events implied by a winner transition. causedBy
// is the reservation whose own mutation triggered the re-ranking: a
// dethroned winner is only told it was outbid when someone else did the
// outbidding, never when its own cancel or re-bid moved the crown.
func (e *Emitter) EmitDelta(ctx context.Context, delta reservation.RankingDelta, causedBy *reservation.Reservation) error {
	if !delta.WinnerChanged() {
		return nil
	}

	prev, cur := delta.Previous, delta.Current

	if prev != nil && cur != nil &&
		prev.BidderID != cur.BidderID &&
		(causedBy == nil || prev.ReservationID != causedBy.ID()) {
		ev := NewOutbid(delta.ItemID, prev.BidderID, prev.Amount, cur.Amount)
		if err := e.jobs.Append(ctx, ev); err != nil {
			return err
		}
		e.logger.Info("outbid event emitted",
			"item_id", delta.ItemID, "bidder_id", prev.BidderID,
			"old_amount", prev.Amount, "new_amount", cur.Amount)
	}

	if cur != nil {
		ev := NewWinning(delta.ItemID, cur.BidderID, cur.Amount)
		if err := e.jobs.Append(ctx, ev); err != nil {
			return err
		}
		e.logger.Info("winning event emitted",
			"item_id", delta.ItemID, "bidder_id", cur.BidderID, "amount", cur.Amount)
	}

	return nil
}

// EmitExpired emits one event per reservation retired by the sweep.
func (e *Emitter) EmitExpired(ctx context.Context, res *reservation.Reservation) error {
	ev := NewExpired(res.ItemID(), res.BidderID())
	if err := e.jobs.Append(ctx, ev); err != nil {
		return err
	}
	e.logger.Info("expired event emitted",
		"item_id", res.ItemID(), "bidder_id", res.BidderID(), "reservation_id", res.ID())
	return nil
}
