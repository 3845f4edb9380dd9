package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "engravape"

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"status":  "healthy",
	})
}
