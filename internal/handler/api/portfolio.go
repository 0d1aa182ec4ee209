package api

import (
	"net/http"
	"strconv"
	"time"

	resdto "reservation-engine/internal/handler/dto/response"
	"reservation-engine/internal/handler/middleware"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type PortfolioHandler struct {
	portfolio queries.PortfolioQueries
}

func NewPortfolioHandler(portfolio queries.PortfolioQueries) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// @Summary Get portfolio
// @Description Get the caller's current reservations and aggregate stats
// @Tags portfolio
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.PortfolioResponse
// @Failure 401 {object} map[string]string
// @Router /portfolio [get]
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	bidderID, ok := middleware.GetBidderID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	view, err := h.portfolio.GetPortfolio(c.Request.Context(), bidderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromPortfolioView(view))
}

// @Summary Get status updates
// @Description Poll reservation status changes for the caller since a point in time
// @Tags portfolio
// @Produce json
// @Security BearerAuth
// @Param since query string false "RFC3339 timestamp; defaults to 24h ago"
// @Param limit query int false "Maximum updates to return"
// @Success 200 {object} resdto.StatusUpdatesResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /portfolio/status-updates [get]
func (h *PortfolioHandler) GetStatusUpdates(c *gin.Context) {
	bidderID, ok := middleware.GetBidderID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	// Zero means "use the default lookback window"; the query service
	// owns the clock and fills it in.
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "since must be an RFC3339 timestamp",
			})
			return
		}
		since = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	view, err := h.portfolio.GetStatusUpdates(c.Request.Context(), bidderID, since, limit)
	if err != nil {
		if errs.Is(err, queries.ErrStatusUpdatesUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Status updates temporarily unavailable",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromStatusUpdates(view))
}
