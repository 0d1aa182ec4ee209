//go:build unit

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservation-engine/internal/handler/api"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type stubPortfolio struct {
	view        *queries.PortfolioView
	updates     *queries.StatusUpdatesView
	updatesErr  error
	sinceSeen   time.Time
	invalidated []uuid.UUID
}

func (s *stubPortfolio) GetPortfolio(_ context.Context, bidderID uuid.UUID) (*queries.PortfolioView, error) {
	s.view.BidderID = bidderID
	return s.view, nil
}

func (s *stubPortfolio) GetStatusUpdates(_ context.Context, _ uuid.UUID, since time.Time, _ int) (*queries.StatusUpdatesView, error) {
	s.sinceSeen = since
	if s.updatesErr != nil {
		return nil, s.updatesErr
	}
	return s.updates, nil
}

func (s *stubPortfolio) Invalidate(bidderID uuid.UUID) {
	s.invalidated = append(s.invalidated, bidderID)
}

type PortfolioHandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	portfolio *stubPortfolio
	bidderID  uuid.UUID
}

func (s *PortfolioHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.portfolio = &stubPortfolio{
		view: &queries.PortfolioView{
			Stats: queries.PortfolioStats{
				TotalOwned:        1,
				ActiveWinningBids: 1,
				TotalBidsMade:     3,
				TotalSpent:        decimal.RequireFromString("250.00"),
			},
		},
		updates: &queries.StatusUpdatesView{
			Stats:     queries.PortfolioStats{TotalBidsMade: 3, TotalSpent: decimal.Zero},
			CheckedAt: time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC),
		},
	}
	s.bidderID = uuid.New()
	handler := api.NewPortfolioHandler(s.portfolio)

	authMiddleware := func(c *gin.Context) {
		c.Set("bidder_id", s.bidderID)
		c.Next()
	}

	s.router.GET("/portfolio", authMiddleware, handler.GetPortfolio)
	s.router.GET("/portfolio/status-updates", authMiddleware, handler.GetStatusUpdates)
}

func TestPortfolioHandlerSuite(t *testing.T) {
	suite.Run(t, new(PortfolioHandlerTestSuite))
}

func (s *PortfolioHandlerTestSuite) get(url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *PortfolioHandlerTestSuite) TestGetPortfolio() {
	w := s.get("/portfolio")

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), s.bidderID.String())
	s.Contains(w.Body.String(), `"total_bids_made":3`)
	s.Contains(w.Body.String(), `"active_portfolio":[]`, "nil slices serialize as empty arrays")
	s.Contains(w.Body.String(), `"bidding_history":[]`)
}

func (s *PortfolioHandlerTestSuite) TestGetStatusUpdates() {
	s.Run("default window", func() {
		w := s.get("/portfolio/status-updates")
		s.Equal(http.StatusOK, w.Code)
		s.True(s.portfolio.sinceSeen.IsZero(), "omitted since reaches the query service as zero")
		s.Contains(w.Body.String(), `"updates":[]`, "nil updates serialize as an empty array")
		s.Contains(w.Body.String(), `"checked_at"`)
	})

	s.Run("explicit since", func() {
		since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		w := s.get("/portfolio/status-updates?since=" + since.Format(time.RFC3339))
		s.Equal(http.StatusOK, w.Code)
		s.True(s.portfolio.sinceSeen.Equal(since))
	})

	s.Run("bad since", func() {
		w := s.get("/portfolio/status-updates?since=yesterday")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("bad limit", func() {
		w := s.get("/portfolio/status-updates?limit=-3")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("store unavailable", func() {
		// The query service hands the sentinel back as a mark.
		s.portfolio.updatesErr = errs.Mark(errs.New("connection reset"), queries.ErrStatusUpdatesUnavailable)
		w := s.get("/portfolio/status-updates")
		s.Equal(http.StatusServiceUnavailable, w.Code)
	})
}
