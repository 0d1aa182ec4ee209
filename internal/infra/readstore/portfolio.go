package readstore

import (
	"context"
	"time"

	"reservation-engine/internal/infra"
	"reservation-engine/internal/usecase/queries"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PortfolioReadStore struct {
	pool *pgxpool.Pool
}

func NewPortfolioReadStore(pool *pgxpool.Pool) *PortfolioReadStore {
	return &PortfolioReadStore{pool: pool}
}

var _ queries.PortfolioReadStore = (*PortfolioReadStore)(nil)

func (r *PortfolioReadStore) FindWinningItems(ctx context.Context, bidderID uuid.UUID) ([]*queries.PortfolioItem, error) {
	query, args, err := psql.
		Select("r.id", "r.item_id", "i.title", "r.offer_amount", "r.rank_position", "r.created_at").
		Column(`(SELECT count(*) FROM reservations c
			WHERE c.item_id = r.item_id AND c.is_current AND c.bidder_id <> r.bidder_id) AS competitor_count`).
		From("reservations r").
		Join("items i ON i.id = r.item_id").
		Where(sq.Eq{"r.bidder_id": bidderID, "r.is_winning": true}).
		OrderBy("r.created_at DESC").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build winning items query", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find winning items", err)
	}
	defer rows.Close()

	var items []*queries.PortfolioItem
	for rows.Next() {
		var it queries.PortfolioItem
		if err := rows.Scan(
			&it.ReservationID, &it.ItemID, &it.ItemTitle, &it.Amount,
			&it.RankPosition, &it.ReservedAt, &it.CompetitorCnt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan winning item", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read winning items", err)
	}
	return items, nil
}

func (r *PortfolioReadStore) FindBiddingHistory(ctx context.Context, bidderID uuid.UUID, limit int32) ([]*queries.BidHistoryEntry, error) {
	query, args, err := psql.
		Select("r.id", "r.item_id", "i.title", "r.offer_amount", "r.status",
			"r.is_winning", "r.rank_position", "r.superseded_at", "r.created_at").
		From("reservations r").
		Join("items i ON i.id = r.item_id").
		Where(sq.Eq{"r.bidder_id": bidderID}).
		OrderBy("r.created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build bidding history query", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find bidding history", err)
	}
	defer rows.Close()

	var entries []*queries.BidHistoryEntry
	for rows.Next() {
		var e queries.BidHistoryEntry
		if err := rows.Scan(
			&e.ReservationID, &e.ItemID, &e.ItemTitle, &e.Amount, &e.Status,
			&e.IsWinning, &e.RankPosition, &e.SupersededAt, &e.CreatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan bidding history entry", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read bidding history", err)
	}
	return entries, nil
}

// AggregateStats computes the bidder's portfolio counters in one round
// trip. Ownership counts winning rows only; holding a challenger
// position on an item is not ownership. A bidder counts as outbid on an
// item only when its latest reservation there was superseded by someone
// else; retiring your own offer with a higher one is not a loss.
func (r *PortfolioReadStore) AggregateStats(ctx context.Context, bidderID uuid.UUID) (*queries.PortfolioStats, error) {
	const query = `
		WITH latest AS (
			SELECT DISTINCT ON (item_id) id, status, superseded_by
			FROM reservations
			WHERE bidder_id = $1
			ORDER BY item_id, created_at DESC
		)
		SELECT
			(SELECT count(DISTINCT item_id) FROM reservations
				WHERE bidder_id = $1 AND is_current AND is_winning) AS total_owned,
			(SELECT count(*) FROM reservations
				WHERE bidder_id = $1 AND is_current AND is_winning) AS active_winning_bids,
			(SELECT count(*) FROM reservations
				WHERE bidder_id = $1) AS total_bids_made,
			(SELECT count(*) FROM latest l
				JOIN reservations w ON w.id = l.superseded_by
				WHERE l.status = 'superseded' AND w.bidder_id <> $1) AS outbid_count,
			(SELECT COALESCE(sum(offer_amount), 0) FROM reservations
				WHERE bidder_id = $1 AND is_current AND is_winning) AS total_spent`

	var stats queries.PortfolioStats
	err := r.pool.QueryRow(ctx, query, bidderID).Scan(
		&stats.TotalOwned, &stats.ActiveWinningBids, &stats.TotalBidsMade,
		&stats.OutbidCount, &stats.TotalSpent,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to aggregate portfolio stats", err)
	}
	return &stats, nil
}

func (r *PortfolioReadStore) FindStatusUpdates(ctx context.Context, bidderID uuid.UUID, since time.Time, limit int32) ([]*queries.StatusUpdateView, error) {
	query, args, err := psql.
		Select("id", "kind", "item_id", "payload->>'template_key'", "payload", "created_at").
		From("notification_jobs").
		Where(sq.Eq{"bidder_id": bidderID}).
		Where(sq.Gt{"created_at": since}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build status updates query", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find status updates", err)
	}
	defer rows.Close()

	var updates []*queries.StatusUpdateView
	for rows.Next() {
		var u queries.StatusUpdateView
		if err := rows.Scan(&u.ID, &u.Kind, &u.ItemID, &u.TemplateKey, &u.Payload, &u.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan status update", err)
		}
		updates = append(updates, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read status updates", err)
	}
	return updates, nil
}
