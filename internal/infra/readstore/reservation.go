package readstore

import (
	"context"
	"errors"

	"reservation-engine/internal/infra"
	"reservation-engine/internal/usecase/queries"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ReservationReadStore struct {
	pool *pgxpool.Pool
}

func NewReservationReadStore(pool *pgxpool.Pool) *ReservationReadStore {
	return &ReservationReadStore{pool: pool}
}

var _ queries.ReservationReadStore = (*ReservationReadStore)(nil)

func (r *ReservationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	query, args, err := psql.
		Select("r.id", "r.item_id", "i.title", "r.bidder_id", "r.offer_amount", "r.bidder_tier",
			"r.status", "r.is_current", "r.is_winning", "r.rank_position", "r.previous_rank",
			"r.superseded_by", "r.superseded_at", "r.created_at").
		From("reservations r").
		Join("items i ON i.id = r.item_id").
		Where(sq.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr("failed to build reservation query", err)
	}

	var v queries.ReservationView
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&v.ID, &v.ItemID, &v.ItemTitle, &v.BidderID, &v.Amount, &v.Tier,
		&v.Status, &v.IsCurrent, &v.IsWinning, &v.RankPosition, &v.PreviousRank,
		&v.SupersededBy, &v.SupersededAt, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by ID", err)
	}
	return &v, nil
}
