package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requesterKey = "requester"

type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Auth requires a valid bearer token. The user is reloaded on every request
// so a revoked admin flag takes effect immediately.
func Auth(tokens TokenVerifier, users UserFinder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, models.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, user no longer exists"})
			return
		}
		if err != nil {
			logger.Error("Failed to load user for token",
				zap.String("trace_id", GetTraceID(c.Request.Context())),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		SetRequester(c, models.Requester{UserID: user.ID, IsAdmin: user.IsAdmin})
		c.Next()
	}
}

// Admin must run after Auth.
func Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := RequesterFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}
		if !requester.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Not authorized as an admin"})
			return
		}
		c.Next()
	}
}

func SetRequester(c *gin.Context, requester models.Requester) {
	c.Set(requesterKey, requester)
}

func RequesterFrom(c *gin.Context) (models.Requester, bool) {
	v, ok := c.Get(requesterKey)
	if !ok {
		return models.Requester{}, false
	}
	requester, ok := v.(models.Requester)
	return requester, ok
}
