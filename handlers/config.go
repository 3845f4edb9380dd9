package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PayPalClientID exposes the public client id the checkout widget needs.
func PayPalClientID(clientID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, clientID)
	}
}
