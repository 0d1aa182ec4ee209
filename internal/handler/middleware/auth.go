package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"reservation-engine/internal/domain/reservation"
	"reservation-engine/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxBidderIDKey = "bidder_id"
	ctxTierKey     = "bidder_tier"
)

type AuthMiddleware struct {
	tokens *jwt.Service
}

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(authHeader[len("Bearer "):])
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		tier, err := reservation.NewBidderTier(claims.Tier)
		if err != nil {
			// Unknown tiers degrade to provisional rather than locking
			// the bidder out; tier only affects display.
			tier = reservation.TierProvisional
		}

		c.Set(ctxBidderIDKey, claims.UserID)
		c.Set(ctxTierKey, tier)
		c.Next()
	}
}

func GetBidderID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxBidderIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func GetBidderTier(c *gin.Context) (reservation.BidderTier, bool) {
	v, exists := c.Get(ctxTierKey)
	if !exists {
		return "", false
	}
	tier, ok := v.(reservation.BidderTier)
	return tier, ok
}
