package response

import (
	"reservation-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type RankingResponse struct {
	ItemID  uuid.UUID                   `json:"item_id"`
	Entries []*queries.RankingEntryView `json:"entries"`
}

func FromRanking(itemID uuid.UUID, entries []*queries.RankingEntryView) RankingResponse {
	if entries == nil {
		entries = []*queries.RankingEntryView{}
	}
	return RankingResponse{ItemID: itemID, Entries: entries}
}

type ItemStatsResponse struct {
	*queries.ItemStatsView
}

func FromItemStats(v *queries.ItemStatsView) ItemStatsResponse {
	return ItemStatsResponse{ItemStatsView: v}
}
