package readstore

import (
	"context"

	"reservation-engine/internal/infra"
	"reservation-engine/internal/usecase/queries"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ItemReadStore struct {
	pool *pgxpool.Pool
}

func NewItemReadStore(pool *pgxpool.Pool) *ItemReadStore {
	return &ItemReadStore{pool: pool}
}

var _ queries.ItemReadStore = (*ItemReadStore)(nil)

func (r *ItemReadStore) ItemExists(ctx context.Context, itemID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, itemID).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check item existence", err)
	}
	return exists, nil
}

func (r *ItemReadStore) FindRanking(ctx context.Context, itemID uuid.UUID) ([]*queries.RankingEntryView, error) {
	query, args, err := psql.
		Select("id", "bidder_id", "offer_amount", "bidder_tier", "rank_position", "is_winning", "created_at").
		From("reservations").
		Where(sq.Eq{"item_id": itemID, "is_current": true}).
		OrderBy("rank_position ASC").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build ranking query", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find item ranking", err)
	}
	defer rows.Close()

	var entries []*queries.RankingEntryView
	for rows.Next() {
		var e queries.RankingEntryView
		if err := rows.Scan(
			&e.ReservationID, &e.BidderID, &e.Amount, &e.Tier,
			&e.RankPosition, &e.IsWinning, &e.CreatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan ranking entry", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read item ranking", err)
	}
	return entries, nil
}

func (r *ItemReadStore) AggregateStats(ctx context.Context, itemID uuid.UUID) (*queries.ItemStatsView, error) {
	const query = `
		SELECT
			$1::uuid AS item_id,
			(SELECT count(*) FROM reservations
				WHERE item_id = $1 AND is_current) AS active_count,
			(SELECT count(DISTINCT bidder_id) FROM reservations
				WHERE item_id = $1 AND is_current) AS unique_bidders,
			(SELECT max(offer_amount) FROM reservations
				WHERE item_id = $1 AND is_current) AS highest_amount,
			(SELECT min(offer_amount) FROM reservations
				WHERE item_id = $1 AND is_current) AS lowest_amount,
			(SELECT avg(offer_amount) FROM reservations
				WHERE item_id = $1 AND is_current) AS average_amount,
			(SELECT bidder_id FROM reservations
				WHERE item_id = $1 AND is_winning) AS winning_bidder_id,
			(SELECT max(created_at) FROM reservations
				WHERE item_id = $1) AS last_reserved_at,
			(SELECT count(*) FROM reservations
				WHERE item_id = $1 AND status = 'superseded') AS total_supersessions`

	var stats queries.ItemStatsView
	err := r.pool.QueryRow(ctx, query, itemID).Scan(
		&stats.ItemID, &stats.ActiveCount, &stats.UniqueBidders,
		&stats.HighestAmount, &stats.LowestAmount, &stats.AverageAmount,
		&stats.WinningBidderID, &stats.LastReservedAt, &stats.TotalSupersessions,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to aggregate item stats", err)
	}
	return &stats, nil
}
