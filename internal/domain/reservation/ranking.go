package reservation

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Placement is where a single current reservation lands after ranking.
type Placement struct {
	ReservationID uuid.UUID
	BidderID      uuid.UUID
	Amount        decimal.Decimal
	Position      int
	Winning       bool
}

// RankingDelta captures the winner transition caused by one mutation.
// Previous is nil when the item had no winner before, Current is nil
// when it has none after.
type RankingDelta struct {
	ItemID   uuid.UUID
	Previous *Placement
	Current  *Placement
}

// WinnerChanged reports whether a different reservation holds the top
// position after the mutation.
func (d RankingDelta) WinnerChanged() bool {
	switch {
	case d.Previous == nil && d.Current == nil:
		return false
	case d.Previous == nil || d.Current == nil:
		return true
	default:
		return d.Previous.ReservationID != d.Current.ReservationID
	}
}

// Rank orders the current reservations of one item, winner first.
// Primary key is offer amount descending; ties rank the earlier
// created_at first, and equal timestamps fall back to id ordering so
// the result is fully deterministic. The input is not mutated; callers
// apply placements and persist them.
func Rank(current []*Reservation) []Placement {
	if len(current) == 0 {
		return nil
	}

	ordered := make([]*Reservation, len(current))
	copy(ordered, current)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Amount().Equal(b.Amount()) {
			return a.Amount().GreaterThan(b.Amount())
		}
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		return a.ID().String() < b.ID().String()
	})

	placements := make([]Placement, len(ordered))
	for i, r := range ordered {
		placements[i] = Placement{
			ReservationID: r.ID(),
			BidderID:      r.BidderID(),
			Amount:        r.Amount(),
			Position:      i + 1,
			Winning:       i == 0,
		}
	}
	return placements
}

// Winner returns the top placement, or nil for an empty ranking.
func Winner(placements []Placement) *Placement {
	if len(placements) == 0 {
		return nil
	}
	top := placements[0]
	return &top
}

// Delta derives the winner transition between two rankings of the same
// item, as consumed by the event emitter.
func Delta(itemID uuid.UUID, before, after []Placement) RankingDelta {
	return RankingDelta{
		ItemID:   itemID,
		Previous: Winner(before),
		Current:  Winner(after),
	}
}
