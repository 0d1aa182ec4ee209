package repository

import (
	"context"
	"errors"
	"time"

	"reservation-engine/internal/domain/item"
	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const reservationColumns = `id, item_id, bidder_id, offer_amount, bidder_tier, status,
	is_current, is_winning, rank_position, previous_rank,
	created_at, superseded_at, superseded_by`

type LedgerRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool, q: querier{pool: pool}}
}

var _ commands.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := withTx(ctx, r.pool, fn); err != nil {
		// Domain errors from fn pass through untouched; only raw
		// driver errors (commit conflicts included) get classified.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			var repoErr infra.RepositoryError
			if !errors.As(err, &repoErr) {
				return infra.WrapRepoErr("transaction failed", err)
			}
		}
		return err
	}
	return nil
}

// GetItemForUpdate locks the item row for the rest of the transaction.
// Every mutation of an item's reservation set goes through this lock,
// which serializes competing offers on the same item.
func (r *LedgerRepository) GetItemForUpdate(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	const query = `
		SELECT id, title, creator_id, listing_price, is_listed, created_at
		FROM items
		WHERE id = $1
		FOR UPDATE`

	var it item.Item
	err := r.q.QueryRow(ctx, query, itemID).Scan(
		&it.ID, &it.Title, &it.CreatorID, &it.ListingPrice, &it.IsListed, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("item not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to lock item", err)
	}
	return &it, nil
}

func (r *LedgerRepository) CurrentByItem(ctx context.Context, itemID uuid.UUID) ([]*reservation.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE item_id = $1 AND is_current
		ORDER BY offer_amount DESC, created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, itemID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load current reservations", err)
	}
	defer rows.Close()

	var out []*reservation.Reservation
	for rows.Next() {
		res, scanErr := scanReservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read current reservations", err)
	}
	return out, nil
}

func (r *LedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1`

	res, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *LedgerRepository) Insert(ctx context.Context, res *reservation.Reservation) error {
	const query = `
		INSERT INTO reservations (
			id, item_id, bidder_id, offer_amount, bidder_tier, status,
			is_current, is_winning, rank_position, previous_rank,
			created_at, superseded_at, superseded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	err := r.q.Exec(ctx, query,
		res.ID(), res.ItemID(), res.BidderID(), res.Amount(), string(res.Tier()), string(res.Status()),
		res.IsCurrent(), res.IsWinning(), nullableRank(res.RankPosition()), nullableRank(res.PreviousRank()),
		res.CreatedAt(), res.SupersededAt(), res.SupersededBy(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert reservation", err)
	}
	return nil
}

func (r *LedgerRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	const query = `
		UPDATE reservations SET
			status = $2,
			is_current = $3,
			is_winning = $4,
			rank_position = $5,
			previous_rank = $6,
			superseded_at = $7,
			superseded_by = $8
		WHERE id = $1`

	err := r.q.Exec(ctx, query,
		res.ID(), string(res.Status()), res.IsCurrent(), res.IsWinning(),
		nullableRank(res.RankPosition()), nullableRank(res.PreviousRank()),
		res.SupersededAt(), res.SupersededBy(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation", err)
	}
	return nil
}

// ItemIDsWithStale returns the items holding at least one expirable
// challenger older than the cutoff. The sweep then revisits each item
// under its row lock.
func (r *LedgerRepository) ItemIDsWithStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	const query = `
		SELECT DISTINCT item_id
		FROM reservations
		WHERE status = 'active' AND is_current AND NOT is_winning AND created_at < $1`

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan for stale reservations", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to read stale item id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read stale item ids", err)
	}
	return ids, nil
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var (
		id, itemID, bidderID       uuid.UUID
		amount                     decimal.Decimal
		tier, status               string
		isCurrent, isWinning       bool
		rankPosition, previousRank *int32
		createdAt                  time.Time
		supersededAt               *time.Time
		supersededBy               *uuid.UUID
	)

	err := row.Scan(
		&id, &itemID, &bidderID, &amount, &tier, &status,
		&isCurrent, &isWinning, &rankPosition, &previousRank,
		&createdAt, &supersededAt, &supersededBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan reservation", err)
	}

	st, err := reservation.NewStatus(status)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid stored status", err)
	}
	bt, err := reservation.NewBidderTier(tier)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid stored tier", err)
	}

	return reservation.Reconstruct(
		id, itemID, bidderID, amount, bt, st,
		isCurrent, isWinning, derefRank(rankPosition), derefRank(previousRank),
		createdAt, supersededAt, supersededBy,
	), nil
}

func nullableRank(v int) *int32 {
	if v == 0 {
		return nil
	}
	r := int32(v)
	return &r
}

func derefRank(v *int32) int {
	if v == nil {
		return 0
	}
	return int(*v)
}
