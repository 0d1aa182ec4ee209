package queries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Read models (DTO for read side)
type ReservationView struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       uuid.UUID       `json:"item_id"`
	ItemTitle    string          `json:"item_title"`
	BidderID     uuid.UUID       `json:"bidder_id"`
	Amount       decimal.Decimal `json:"amount"`
	Tier         string          `json:"tier"`
	Status       string          `json:"status"`
	IsCurrent    bool            `json:"is_current"`
	IsWinning    bool            `json:"is_winning"`
	RankPosition *int32          `json:"rank_position,omitempty"`
	PreviousRank *int32          `json:"previous_rank,omitempty"`
	SupersededBy *uuid.UUID      `json:"superseded_by,omitempty"`
	SupersededAt *time.Time      `json:"superseded_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PortfolioItem is one owned item: the item joined with the bidder's
// winning reservation on it.
type PortfolioItem struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	ItemTitle     string          `json:"item_title"`
	Amount        decimal.Decimal `json:"amount"`
	RankPosition  *int32          `json:"rank_position,omitempty"`
	CompetitorCnt int32           `json:"competitor_count"`
	ReservedAt    time.Time       `json:"reserved_at"`
}

// BidHistoryEntry is one row of the bidder's full bidding history,
// terminal rows included.
type BidHistoryEntry struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	ItemTitle     string          `json:"item_title"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	IsWinning     bool            `json:"is_winning"`
	RankPosition  *int32          `json:"rank_position,omitempty"`
	SupersededAt  *time.Time      `json:"superseded_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PortfolioStats struct {
	TotalOwned        int64           `json:"total_owned"`
	ActiveWinningBids int64           `json:"active_winning_bids"`
	TotalBidsMade     int64           `json:"total_bids_made"`
	OutbidCount       int64           `json:"outbid_count"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
}

type PortfolioView struct {
	BidderID        uuid.UUID          `json:"bidder_id"`
	ActivePortfolio []*PortfolioItem   `json:"active_portfolio"`
	BiddingHistory  []*BidHistoryEntry `json:"bidding_history"`
	Stats           PortfolioStats     `json:"stats"`
}

// StatusUpdatesView is the polling payload: transitions since the
// client's last check plus a fresh stats snapshot.
type StatusUpdatesView struct {
	Updates   []*StatusUpdateView `json:"updates"`
	Stats     PortfolioStats      `json:"stats"`
	CheckedAt time.Time           `json:"checked_at"`
}

type StatusUpdateView struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	ItemID      uuid.UUID       `json:"item_id"`
	TemplateKey string          `json:"template_key"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RankingEntryView struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	BidderID      uuid.UUID       `json:"bidder_id"`
	Amount        decimal.Decimal `json:"amount"`
	Tier          string          `json:"tier"`
	RankPosition  int32           `json:"rank_position"`
	IsWinning     bool            `json:"is_winning"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ItemStatsView struct {
	ItemID             uuid.UUID        `json:"item_id"`
	ActiveCount        int64            `json:"active_count"`
	UniqueBidders      int64            `json:"unique_bidders"`
	HighestAmount      *decimal.Decimal `json:"highest_amount,omitempty"`
	LowestAmount       *decimal.Decimal `json:"lowest_amount,omitempty"`
	AverageAmount      *decimal.Decimal `json:"average_amount,omitempty"`
	WinningBidderID    *uuid.UUID       `json:"winning_bidder_id,omitempty"`
	LastReservedAt     *time.Time       `json:"last_reserved_at,omitempty"`
	TotalSupersessions int64            `json:"total_supersessions"`
}
