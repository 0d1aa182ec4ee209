package api

import (
	"net/http"

	resdto "reservation-engine/internal/handler/dto/response"
	"reservation-engine/internal/handler/httperr"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ItemHandler struct {
	items queries.ItemQueries
}

func NewItemHandler(items queries.ItemQueries) *ItemHandler {
	return &ItemHandler{items: items}
}

// @Summary Get item ranking
// @Description Get the ordered current offers on an item, winner first
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} resdto.RankingResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /items/{id}/ranking [get]
func (h *ItemHandler) GetRanking(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid item ID", nil)
		return
	}

	entries, err := h.items.GetRanking(c.Request.Context(), itemID)
	if err != nil {
		if errs.Is(err, queries.ErrItemNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Item not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRanking(itemID, entries))
}

// @Summary Get item stats
// @Description Get aggregate reservation activity for an item
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} resdto.ItemStatsResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /items/{id}/stats [get]
func (h *ItemHandler) GetStats(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid item ID", nil)
		return
	}

	stats, err := h.items.GetStats(c.Request.Context(), itemID)
	if err != nil {
		if errs.Is(err, queries.ErrItemNotFound) {
			httperr.AbortWithError(c, http.StatusNotFound, err, "Item not found", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromItemStats(stats))
}
