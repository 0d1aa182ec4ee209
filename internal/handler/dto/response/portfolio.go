package response

import (
	"reservation-engine/internal/usecase/queries"
)

type PortfolioResponse struct {
	*queries.PortfolioView
}

func FromPortfolioView(v *queries.PortfolioView) PortfolioResponse {
	if v.ActivePortfolio == nil {
		v.ActivePortfolio = []*queries.PortfolioItem{}
	}
	if v.BiddingHistory == nil {
		v.BiddingHistory = []*queries.BidHistoryEntry{}
	}
	return PortfolioResponse{PortfolioView: v}
}

type StatusUpdatesResponse struct {
	*queries.StatusUpdatesView
}

func FromStatusUpdates(v *queries.StatusUpdatesView) StatusUpdatesResponse {
	if v.Updates == nil {
		v.Updates = []*queries.StatusUpdateView{}
	}
	return StatusUpdatesResponse{StatusUpdatesView: v}
}
