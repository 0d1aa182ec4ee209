package notify

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindOutbid  Kind = "outbid"
	KindWinning Kind = "winning"
	KindExpired Kind = "expired"
)

// Message template keys resolved by the external notifier; the engine
// never renders user-facing text itself.
const (
	TemplateOutbid  = "reservation.outbid"
	TemplateWinning = "reservation.winning"
	TemplateExpired = "reservation.expired"
)

// Event carries everything the external delivery system needs to render
// a notification without re-querying the ledger.
type Event struct {
	Kind        Kind             `json:"kind"`
	ItemID      uuid.UUID        `json:"item_id"`
	BidderID    uuid.UUID        `json:"bidder_id"`
	OldAmount   *decimal.Decimal `json:"old_amount,omitempty"`
	NewAmount   *decimal.Decimal `json:"new_amount,omitempty"`
	TemplateKey string           `json:"template_key"`
}

func NewOutbid(itemID, bidderID uuid.UUID, oldAmount, newAmount decimal.Decimal) Event {
	return Event{
		Kind:        KindOutbid,
		ItemID:      itemID,
		BidderID:    bidderID,
		OldAmount:   &oldAmount,
		NewAmount:   &newAmount,
		TemplateKey: TemplateOutbid,
	}
}

func NewWinning(itemID, bidderID uuid.UUID, amount decimal.Decimal) Event {
	return Event{
		Kind:        KindWinning,
		ItemID:      itemID,
		BidderID:    bidderID,
		NewAmount:   &amount,
		TemplateKey: TemplateWinning,
	}
}

func NewExpired(itemID, bidderID uuid.UUID) Event {
	return Event{
		Kind:        KindExpired,
		ItemID:      itemID,
		BidderID:    bidderID,
		TemplateKey: TemplateExpired,
	}
}
