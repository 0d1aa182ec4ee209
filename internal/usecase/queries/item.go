package queries

import (
	"context"

	"reservation-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrItemNotFound = errs.New("item not found")

type ItemQueries interface {
	GetRanking(ctx context.Context, itemID uuid.UUID) ([]*RankingEntryView, error)
	GetStats(ctx context.Context, itemID uuid.UUID) (*ItemStatsView, error)
}

type ItemReadStore interface {
	ItemExists(ctx context.Context, itemID uuid.UUID) (bool, error)
	FindRanking(ctx context.Context, itemID uuid.UUID) ([]*RankingEntryView, error)
	AggregateStats(ctx context.Context, itemID uuid.UUID) (*ItemStatsView, error)
}

type itemQueriesImpl struct {
	readStore ItemReadStore
}

func NewItemQueries(readStore ItemReadStore) ItemQueries {
	return &itemQueriesImpl{readStore: readStore}
}

func (q *itemQueriesImpl) GetRanking(ctx context.Context, itemID uuid.UUID) ([]*RankingEntryView, error) {
	if err := q.ensureItem(ctx, itemID); err != nil {
		return nil, err
	}
	return q.readStore.FindRanking(ctx, itemID)
}

func (q *itemQueriesImpl) GetStats(ctx context.Context, itemID uuid.UUID) (*ItemStatsView, error) {
	if err := q.ensureItem(ctx, itemID); err != nil {
		return nil, err
	}
	return q.readStore.AggregateStats(ctx, itemID)
}

func (q *itemQueriesImpl) ensureItem(ctx context.Context, itemID uuid.UUID) error {
	exists, err := q.readStore.ItemExists(ctx, itemID)
	if err != nil {
		return errs.Wrap(err, "failed to check item existence")
	}
	if !exists {
		return ErrItemNotFound
	}
	return nil
}
