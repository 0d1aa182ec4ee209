//go:build unit

package commands_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"reservation-engine/internal/domain/item"
	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	items        map[uuid.UUID]item.Item
	reservations map[uuid.UUID]*reservation.Reservation

	txFailures int
	failLocks  map[uuid.UUID]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		items:        make(map[uuid.UUID]item.Item),
		reservations: make(map[uuid.UUID]*reservation.Reservation),
		failLocks:    make(map[uuid.UUID]error),
	}
}

func (f *fakeLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.txFailures > 0 {
		f.txFailures--
		return infra.WrapRepoErr("lock conflict", nil, infra.KindSerialization)
	}
	return fn(ctx)
}

func (f *fakeLedger) GetItemForUpdate(_ context.Context, itemID uuid.UUID) (*item.Item, error) {
	if err, ok := f.failLocks[itemID]; ok {
		return nil, err
	}
	it, ok := f.items[itemID]
	if !ok {
		return nil, infra.WrapRepoErr("item not found", nil, infra.KindNotFound)
	}
	return &it, nil
}

func (f *fakeLedger) CurrentByItem(_ context.Context, itemID uuid.UUID) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	for _, r := range f.reservations {
		if r.ItemID() == itemID && r.IsCurrent() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return nil, infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return r, nil
}

func (f *fakeLedger) Insert(_ context.Context, res *reservation.Reservation) error {
	f.reservations[res.ID()] = res
	return nil
}

func (f *fakeLedger) Update(_ context.Context, res *reservation.Reservation) error {
	f.reservations[res.ID()] = res
	return nil
}

func (f *fakeLedger) ItemIDsWithStale(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range f.reservations {
		if r.StaleSince(cutoff) && !seen[r.ItemID()] {
			seen[r.ItemID()] = true
			ids = append(ids, r.ItemID())
		}
	}
	return ids, nil
}

type fakeEmitter struct {
	events []notify.Event
}

func (f *fakeEmitter) EmitDelta(_ context.Context, delta reservation.RankingDelta, causedBy *reservation.Reservation) error {
	if !delta.WinnerChanged() {
		return nil
	}
	prev, cur := delta.Previous, delta.Current
	if prev != nil && cur != nil && prev.BidderID != cur.BidderID &&
		(causedBy == nil || prev.ReservationID != causedBy.ID()) {
		f.events = append(f.events, notify.NewOutbid(delta.ItemID, prev.BidderID, prev.Amount, cur.Amount))
	}
	if cur != nil {
		f.events = append(f.events, notify.NewWinning(delta.ItemID, cur.BidderID, cur.Amount))
	}
	return nil
}

func (f *fakeEmitter) EmitExpired(_ context.Context, res *reservation.Reservation) error {
	f.events = append(f.events, notify.NewExpired(res.ItemID(), res.BidderID()))
	return nil
}

func (f *fakeEmitter) kinds() []notify.Kind {
	out := make([]notify.Kind, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeInvalidator struct {
	invalidated []uuid.UUID
}

func (f *fakeInvalidator) Invalidate(bidderID uuid.UUID) {
	f.invalidated = append(f.invalidated, bidderID)
}

type fixture struct {
	ledger      *fakeLedger
	emitter     *fakeEmitter
	invalidator *fakeInvalidator
	clock       *clock.MockClock
	svc         commands.ReservationCommands
	itemID      uuid.UUID
	creatorID   uuid.UUID
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := newFakeLedger()
	emitter := &fakeEmitter{}
	invalidator := &fakeInvalidator{}
	clk := clock.NewMockClock(testTime)

	creatorID := uuid.New()
	itemID := uuid.New()
	ledger.items[itemID] = item.Item{
		ID:           itemID,
		Title:        "Florence Duomo #12",
		CreatorID:    creatorID,
		ListingPrice: decimal.RequireFromString("50.00"),
		IsListed:     true,
		CreatedAt:    testTime.Add(-24 * time.Hour),
	}

	svc := commands.NewReservationCommands(ledger, emitter, invalidator, clk, slog.Default())
	return &fixture{
		ledger:      ledger,
		emitter:     emitter,
		invalidator: invalidator,
		clock:       clk,
		svc:         svc,
		itemID:      itemID,
		creatorID:   creatorID,
	}
}

func (fx *fixture) place(t *testing.T, bidderID uuid.UUID, amount string) *commands.PlaceResult {
	t.Helper()
	result, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
		ItemID:   fx.itemID,
		BidderID: bidderID,
		Amount:   decimal.RequireFromString(amount),
		Tier:     reservation.TierVerified,
	})
	require.NoError(t, err)
	return result
}

func TestPlaceReservation(t *testing.T) {
	t.Run("first offer becomes the winner", func(t *testing.T) {
		fx := newFixture(t)
		bidder := uuid.New()

		result := fx.place(t, bidder, "100.00")

		assert.True(t, result.Reservation.IsWinning())
		assert.Equal(t, 1, result.Reservation.RankPosition())
		assert.Equal(t, []notify.Kind{notify.KindWinning}, fx.emitter.kinds())
		assert.Contains(t, fx.invalidator.invalidated, bidder)
	})

	t.Run("higher offer dethrones and supersedes the previous winner", func(t *testing.T) {
		fx := newFixture(t)
		alice, bob := uuid.New(), uuid.New()

		first := fx.place(t, alice, "100.00")
		fx.clock.Add(time.Minute)
		second := fx.place(t, bob, "150.00")

		assert.True(t, second.Reservation.IsWinning())

		dethroned := fx.ledger.reservations[first.Reservation.ID()]
		assert.Equal(t, reservation.StatusSuperseded, dethroned.Status())
		assert.False(t, dethroned.IsCurrent())
		require.NotNil(t, dethroned.SupersededBy())
		assert.Equal(t, second.Reservation.ID(), *dethroned.SupersededBy())

		assert.Equal(t, []notify.Kind{notify.KindWinning, notify.KindOutbid, notify.KindWinning}, fx.emitter.kinds())
	})

	t.Run("lower offer joins the ranking without touching the winner", func(t *testing.T) {
		fx := newFixture(t)
		alice, bob := uuid.New(), uuid.New()

		first := fx.place(t, alice, "200.00")
		fx.clock.Add(time.Minute)
		second := fx.place(t, bob, "120.00")

		assert.False(t, second.Reservation.IsWinning())
		assert.Equal(t, 2, second.Reservation.RankPosition())

		winner := fx.ledger.reservations[first.Reservation.ID()]
		assert.True(t, winner.IsWinning())
		assert.Equal(t, reservation.StatusActive, winner.Status())

		// Only the initial winning event; no outbid for a losing offer.
		assert.Equal(t, []notify.Kind{notify.KindWinning}, fx.emitter.kinds())
	})

	t.Run("re-bid supersedes own prior offer without an outbid event", func(t *testing.T) {
		fx := newFixture(t)
		alice := uuid.New()

		first := fx.place(t, alice, "100.00")
		fx.clock.Add(time.Minute)
		second := fx.place(t, alice, "130.00")

		prior := fx.ledger.reservations[first.Reservation.ID()]
		assert.Equal(t, reservation.StatusSuperseded, prior.Status())
		require.NotNil(t, prior.SupersededBy())
		assert.Equal(t, second.Reservation.ID(), *prior.SupersededBy())
		assert.True(t, second.Reservation.IsWinning())

		assert.NotContains(t, fx.emitter.kinds(), notify.KindOutbid)
	})

	t.Run("re-bid must strictly exceed own prior offer", func(t *testing.T) {
		fx := newFixture(t)
		alice := uuid.New()
		fx.place(t, alice, "100.00")

		for _, amount := range []string{"100.00", "99.99"} {
			_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
				ItemID:   fx.itemID,
				BidderID: alice,
				Amount:   decimal.RequireFromString(amount),
				Tier:     reservation.TierVerified,
			})
			assert.ErrorIs(t, err, commands.ErrInvalidOffer)
		}
	})

	t.Run("creator cannot reserve own item", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   fx.itemID,
			BidderID: fx.creatorID,
			Amount:   decimal.RequireFromString("100.00"),
			Tier:     reservation.TierVerified,
		})
		assert.ErrorIs(t, err, commands.ErrItemNotAvailable)
	})

	t.Run("unknown and unlisted items are not available", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   uuid.New(),
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("100.00"),
			Tier:     reservation.TierVerified,
		})
		assert.ErrorIs(t, err, commands.ErrItemNotAvailable)

		unlisted := uuid.New()
		fx.ledger.items[unlisted] = item.Item{
			ID:           unlisted,
			CreatorID:    uuid.New(),
			ListingPrice: decimal.RequireFromString("10.00"),
			IsListed:     false,
		}
		_, err = fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   unlisted,
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("100.00"),
			Tier:     reservation.TierVerified,
		})
		assert.ErrorIs(t, err, commands.ErrItemNotAvailable)
	})

	t.Run("non-positive amounts are rejected before any lock", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   fx.itemID,
			BidderID: uuid.New(),
			Amount:   decimal.Zero,
			Tier:     reservation.TierVerified,
		})
		assert.ErrorIs(t, err, commands.ErrInvalidOffer)
	})

	t.Run("transient conflicts are retried", func(t *testing.T) {
		fx := newFixture(t)
		fx.ledger.txFailures = 2

		result := fx.place(t, uuid.New(), "100.00")
		assert.True(t, result.Reservation.IsWinning())
	})

	t.Run("conflict after all retries surfaces as concurrency error", func(t *testing.T) {
		fx := newFixture(t)
		fx.ledger.txFailures = 3

		_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   fx.itemID,
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("100.00"),
			Tier:     reservation.TierVerified,
		})
		// The sentinel rides on the serialization error as a mark, so the
		// mark-aware comparison is the one the handlers rely on.
		assert.True(t, errs.Is(err, commands.ErrConcurrencyConflict))
	})

	t.Run("database failure surfaces as storage unavailable", func(t *testing.T) {
		fx := newFixture(t)
		fx.ledger.failLocks[fx.itemID] = infra.WrapRepoErr("connection reset", nil, infra.KindDBFailure)

		_, err := fx.svc.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   fx.itemID,
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("100.00"),
			Tier:     reservation.TierVerified,
		})
		assert.True(t, errs.Is(err, commands.ErrStorageUnavailable))
	})
}

func TestCancelReservation(t *testing.T) {
	t.Run("winner cancelling promotes the next offer", func(t *testing.T) {
		fx := newFixture(t)
		alice, bob := uuid.New(), uuid.New()

		winner := fx.place(t, alice, "200.00")
		fx.clock.Add(time.Minute)
		challenger := fx.place(t, bob, "120.00")

		cancelled, err := fx.svc.CancelReservation(context.Background(), winner.Reservation.ID(), alice)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCancelled, cancelled.Status())

		promoted := fx.ledger.reservations[challenger.Reservation.ID()]
		assert.True(t, promoted.IsWinning())
		assert.Equal(t, 1, promoted.RankPosition())
		assert.Equal(t, 2, promoted.PreviousRank())

		// The cancelling bidder is never told it was outbid.
		assert.NotContains(t, fx.emitter.kinds()[1:], notify.KindOutbid)
		assert.Equal(t, notify.KindWinning, fx.emitter.events[len(fx.emitter.events)-1].Kind)
		assert.Equal(t, bob, fx.emitter.events[len(fx.emitter.events)-1].BidderID)
	})

	t.Run("only the owner can cancel", func(t *testing.T) {
		fx := newFixture(t)
		alice := uuid.New()
		placed := fx.place(t, alice, "100.00")

		_, err := fx.svc.CancelReservation(context.Background(), placed.Reservation.ID(), uuid.New())
		assert.ErrorIs(t, err, commands.ErrNotOwner)
	})

	t.Run("superseded reservations cannot be cancelled", func(t *testing.T) {
		fx := newFixture(t)
		alice := uuid.New()
		first := fx.place(t, alice, "100.00")
		fx.clock.Add(time.Minute)
		fx.place(t, alice, "150.00")

		_, err := fx.svc.CancelReservation(context.Background(), first.Reservation.ID(), alice)
		assert.ErrorIs(t, err, commands.ErrNotCurrent)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.svc.CancelReservation(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, commands.ErrReservationNotFound)
	})
}

func TestSweepExpired(t *testing.T) {
	window := 72 * time.Hour

	t.Run("expires stale challengers but never the winner", func(t *testing.T) {
		fx := newFixture(t)
		alice, bob := uuid.New(), uuid.New()

		fx.place(t, alice, "200.00")
		fx.clock.Add(time.Minute)
		challenger := fx.place(t, bob, "120.00")

		now := testTime.Add(window + time.Hour)
		fx.clock.Set(now)

		expired, err := fx.svc.SweepExpired(context.Background(), now, window)
		require.NoError(t, err)

		require.Len(t, expired, 1)
		assert.Equal(t, challenger.Reservation.ID(), expired[0].ID())
		assert.Equal(t, reservation.StatusExpired, fx.ledger.reservations[challenger.Reservation.ID()].Status())

		for _, r := range fx.ledger.reservations {
			if r.BidderID() == alice {
				assert.Equal(t, reservation.StatusActive, r.Status())
				assert.True(t, r.IsWinning())
			}
		}

		assert.Equal(t, notify.KindExpired, fx.emitter.events[len(fx.emitter.events)-1].Kind)
		assert.Contains(t, fx.invalidator.invalidated, bob)
	})

	t.Run("fresh challengers survive the sweep", func(t *testing.T) {
		fx := newFixture(t)
		fx.place(t, uuid.New(), "200.00")
		fx.clock.Add(time.Minute)
		challenger := fx.place(t, uuid.New(), "120.00")

		now := testTime.Add(time.Hour)
		expired, err := fx.svc.SweepExpired(context.Background(), now, window)
		require.NoError(t, err)

		assert.Empty(t, expired)
		assert.Equal(t, reservation.StatusActive, fx.ledger.reservations[challenger.Reservation.ID()].Status())
	})

	t.Run("one failing item does not stall the rest", func(t *testing.T) {
		fx := newFixture(t)
		fx.place(t, uuid.New(), "200.00")
		fx.clock.Add(time.Minute)
		stale := fx.place(t, uuid.New(), "120.00")

		// Second item whose lock always fails.
		brokenItem := uuid.New()
		fx.ledger.items[brokenItem] = item.Item{
			ID:           brokenItem,
			CreatorID:    uuid.New(),
			ListingPrice: decimal.RequireFromString("10.00"),
			IsListed:     true,
		}
		other := fx.svc
		_, err := other.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   brokenItem,
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("80.00"),
			Tier:     reservation.TierVerified,
		})
		require.NoError(t, err)
		fx.clock.Add(time.Minute)
		_, err = other.PlaceReservation(context.Background(), commands.PlaceReservationParams{
			ItemID:   brokenItem,
			BidderID: uuid.New(),
			Amount:   decimal.RequireFromString("60.00"),
			Tier:     reservation.TierVerified,
		})
		require.NoError(t, err)

		fx.ledger.failLocks[brokenItem] = infra.WrapRepoErr("lock timeout", nil)

		now := testTime.Add(window + time.Hour)
		expired, err := fx.svc.SweepExpired(context.Background(), now, window)
		require.NoError(t, err)

		require.Len(t, expired, 1)
		assert.Equal(t, stale.Reservation.ID(), expired[0].ID())
	})
}
