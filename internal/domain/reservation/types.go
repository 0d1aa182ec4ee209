package reservation

import "errors"

// Status is the terminal lifecycle state of a reservation. Once a
// reservation leaves StatusActive it never returns; the is_current and
// is_winning flags are recomputed on top of active rows only.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid reservation status")

func NewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusSuperseded, StatusExpired, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string { return string(s) }

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool { return s != StatusActive }

// BidderTier distinguishes bidders who completed identity/wallet
// verification from those who have not. Tier is display-only metadata:
// ranking is determined by offer amount alone.
type BidderTier string

const (
	TierVerified    BidderTier = "verified"
	TierProvisional BidderTier = "provisional"
)

var ErrInvalidTier = errors.New("invalid bidder tier")

func NewBidderTier(s string) (BidderTier, error) {
	switch BidderTier(s) {
	case TierVerified, TierProvisional:
		return BidderTier(s), nil
	}
	return "", ErrInvalidTier
}

func (t BidderTier) String() string { return string(t) }
