package response

import (
	"time"

	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationResponse struct {
	ID           uuid.UUID       `json:"id"`
	ItemID       uuid.UUID       `json:"item_id"`
	BidderID     uuid.UUID       `json:"bidder_id"`
	Amount       decimal.Decimal `json:"amount"`
	Tier         string          `json:"tier"`
	Status       string          `json:"status"`
	IsCurrent    bool            `json:"is_current"`
	IsWinning    bool            `json:"is_winning"`
	RankPosition *int            `json:"rank_position,omitempty"`
	PreviousRank *int            `json:"previous_rank,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func FromReservation(r *reservation.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:        r.ID(),
		ItemID:    r.ItemID(),
		BidderID:  r.BidderID(),
		Amount:    r.Amount(),
		Tier:      r.Tier().String(),
		Status:    r.Status().String(),
		IsCurrent: r.IsCurrent(),
		IsWinning: r.IsWinning(),
		CreatedAt: r.CreatedAt(),
	}
	if p := r.RankPosition(); p != 0 {
		resp.RankPosition = &p
	}
	if p := r.PreviousRank(); p != 0 {
		resp.PreviousRank = &p
	}
	return resp
}

type ReservationDetailResponse struct {
	*queries.ReservationView
}

func FromReservationView(v *queries.ReservationView) ReservationDetailResponse {
	return ReservationDetailResponse{ReservationView: v}
}
