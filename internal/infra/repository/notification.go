package repository

import (
	"context"
	"encoding/json"

	"reservation-engine/internal/infra"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/usecase/notify"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationJobRepository writes notification jobs in the same
// transaction as the ranking mutation that produced them.
type NotificationJobRepository struct {
	q     querier
	clock clock.Clock
}

func NewNotificationJobRepository(pool *pgxpool.Pool, clk clock.Clock) *NotificationJobRepository {
	return &NotificationJobRepository{q: querier{pool: pool}, clock: clk}
}

var _ notify.JobStore = (*NotificationJobRepository)(nil)

func (r *NotificationJobRepository) Append(ctx context.Context, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return infra.WrapRepoErr("failed to encode notification payload", err)
	}

	const query = `
		INSERT INTO notification_jobs (id, kind, bidder_id, item_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	err = r.q.Exec(ctx, query,
		uuid.New(), string(ev.Kind), ev.BidderID, ev.ItemID, payload, r.clock.Now(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append notification job", err)
	}
	return nil
}
