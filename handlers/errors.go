package handlers

import (
	"errors"
	"net/http"

	"github.com/milosamec/engravape/models"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"message": ...}. Server errors hide their cause behind a
// generic message and add it as "detail" unless gin runs in release mode.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	if status < http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
		return
	}

	body := gin.H{"message": http.StatusText(status)}
	if status == http.StatusBadGateway {
		body["message"] = models.ErrGatewayUnavailable.Error()
	}
	if gin.Mode() != gin.ReleaseMode {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func bindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found - " + c.Request.URL.Path})
}
