//go:build unit

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reservation-engine/internal/handler/api"
	"reservation-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type stubItems struct {
	ranking []*queries.RankingEntryView
	stats   *queries.ItemStatsView
	err     error
}

func (s *stubItems) GetRanking(_ context.Context, _ uuid.UUID) ([]*queries.RankingEntryView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ranking, nil
}

func (s *stubItems) GetStats(_ context.Context, _ uuid.UUID) (*queries.ItemStatsView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

type ItemHandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	items  *stubItems
}

func (s *ItemHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.items = &stubItems{}
	handler := api.NewItemHandler(s.items)

	s.router.GET("/items/:id/ranking", handler.GetRanking)
	s.router.GET("/items/:id/stats", handler.GetStats)
}

func TestItemHandlerSuite(t *testing.T) {
	suite.Run(t, new(ItemHandlerTestSuite))
}

func (s *ItemHandlerTestSuite) get(url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ItemHandlerTestSuite) TestGetRanking() {
	s.Run("ok", func() {
		s.items.err = nil
		s.items.ranking = []*queries.RankingEntryView{
			{
				ReservationID: uuid.New(),
				BidderID:      uuid.New(),
				Amount:        decimal.RequireFromString("150.00"),
				Tier:          "verified",
				RankPosition:  1,
				IsWinning:     true,
				CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		}

		w := s.get("/items/" + uuid.New().String() + "/ranking")
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"is_winning":true`)
	})

	s.Run("invalid id", func() {
		w := s.get("/items/abc/ranking")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), `"error":{"message":"Invalid item ID"}`)
	})

	s.Run("unknown item", func() {
		s.items.err = queries.ErrItemNotFound
		w := s.get("/items/" + uuid.New().String() + "/ranking")
		s.Equal(http.StatusNotFound, w.Code)
		s.Contains(w.Body.String(), `"error":{"message":"Item not found"}`)
	})
}

func (s *ItemHandlerTestSuite) TestGetStats() {
	s.Run("ok", func() {
		s.items.err = nil
		s.items.stats = &queries.ItemStatsView{
			ItemID:      uuid.New(),
			ActiveCount: 3,
		}

		w := s.get("/items/" + uuid.New().String() + "/stats")
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"active_count":3`)
	})

	s.Run("unknown item", func() {
		s.items.err = queries.ErrItemNotFound
		w := s.get("/items/" + uuid.New().String() + "/stats")
		s.Equal(http.StatusNotFound, w.Code)
		s.Contains(w.Body.String(), `"error":{"message":"Item not found"}`)
	})
}
