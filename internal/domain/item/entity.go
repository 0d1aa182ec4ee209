// Package item models the unique digital asset (EGI) that reservations
// contend for. The engine reads items but never owns their lifecycle;
// listing and minting are handled elsewhere.
package item

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID           uuid.UUID
	Title        string
	CreatorID    uuid.UUID
	ListingPrice decimal.Decimal
	IsListed     bool
	CreatedAt    time.Time
}

// Reservable reports whether the item accepts new reservations.
func (i Item) Reservable() bool {
	return i.IsListed && i.ListingPrice.IsPositive()
}

// OwnedBy reports whether the given user created the item. Creators
// cannot reserve their own items.
func (i Item) OwnedBy(userID uuid.UUID) bool {
	return i.CreatorID == userID
}
