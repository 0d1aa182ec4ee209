package queries

import (
	"context"
	"log/slog"
	"time"

	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/errs"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

var ErrStatusUpdatesUnavailable = errs.New("status updates unavailable")

const (
	statsCacheSize      = 4096
	statsCacheTTL       = 30 * time.Second
	historyPageLimit    = 200
	statusUpdatesWindow = 24 * time.Hour
)

type PortfolioQueries interface {
	GetPortfolio(ctx context.Context, bidderID uuid.UUID) (*PortfolioView, error)

	// GetStatusUpdates returns the bidder's transitions after since. A
	// zero since means the default lookback window.
	GetStatusUpdates(ctx context.Context, bidderID uuid.UUID, since time.Time, limit int) (*StatusUpdatesView, error)

	// Invalidate drops the cached stats for a bidder after a write
	// touches their reservations.
	Invalidate(bidderID uuid.UUID)
}

type PortfolioReadStore interface {
	FindWinningItems(ctx context.Context, bidderID uuid.UUID) ([]*PortfolioItem, error)
	FindBiddingHistory(ctx context.Context, bidderID uuid.UUID, limit int32) ([]*BidHistoryEntry, error)
	AggregateStats(ctx context.Context, bidderID uuid.UUID) (*PortfolioStats, error)
	FindStatusUpdates(ctx context.Context, bidderID uuid.UUID, since time.Time, limit int32) ([]*StatusUpdateView, error)
}

type cachedStats struct {
	stats    PortfolioStats
	cachedAt time.Time
}

type portfolioQueriesImpl struct {
	readStore PortfolioReadStore
	cache     *lru.Cache
	clock     clock.Clock
	logger    *slog.Logger
}

func NewPortfolioQueries(readStore PortfolioReadStore, clk clock.Clock, logger *slog.Logger) (PortfolioQueries, error) {
	cache, err := lru.New(statsCacheSize)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build stats cache")
	}
	return &portfolioQueriesImpl{
		readStore: readStore,
		cache:     cache,
		clock:     clk,
		logger:    logger,
	}, nil
}

func (q *portfolioQueriesImpl) GetPortfolio(ctx context.Context, bidderID uuid.UUID) (*PortfolioView, error) {
	stats, err := q.statsFor(ctx, bidderID)
	if err != nil {
		return nil, err
	}

	owned, err := q.readStore.FindWinningItems(ctx, bidderID)
	if err != nil {
		return nil, err
	}

	history, err := q.readStore.FindBiddingHistory(ctx, bidderID, historyPageLimit)
	if err != nil {
		return nil, err
	}

	return &PortfolioView{
		BidderID:        bidderID,
		ActivePortfolio: owned,
		BiddingHistory:  history,
		Stats:           *stats,
	}, nil
}

func (q *portfolioQueriesImpl) GetStatusUpdates(ctx context.Context, bidderID uuid.UUID, since time.Time, limit int) (*StatusUpdatesView, error) {
	if since.IsZero() {
		since = q.clock.Now().Add(-statusUpdatesWindow)
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	updates, err := q.readStore.FindStatusUpdates(ctx, bidderID, since, int32(limit))
	if err != nil {
		return nil, errs.Mark(err, ErrStatusUpdatesUnavailable)
	}

	stats, err := q.statsFor(ctx, bidderID)
	if err != nil {
		return nil, errs.Mark(err, ErrStatusUpdatesUnavailable)
	}

	if updates == nil {
		updates = []*StatusUpdateView{}
	}
	return &StatusUpdatesView{
		Updates:   updates,
		Stats:     *stats,
		CheckedAt: q.clock.Now(),
	}, nil
}

func (q *portfolioQueriesImpl) Invalidate(bidderID uuid.UUID) {
	q.cache.Remove(bidderID)
}

func (q *portfolioQueriesImpl) statsFor(ctx context.Context, bidderID uuid.UUID) (*PortfolioStats, error) {
	if v, ok := q.cache.Get(bidderID); ok {
		entry := v.(cachedStats)
		if q.clock.Now().Sub(entry.cachedAt) < statsCacheTTL {
			return &entry.stats, nil
		}
		q.cache.Remove(bidderID)
	}

	stats, err := q.readStore.AggregateStats(ctx, bidderID)
	if err != nil {
		return nil, err
	}
	q.cache.Add(bidderID, cachedStats{stats: *stats, cachedAt: q.clock.Now()})
	return stats, nil
}
