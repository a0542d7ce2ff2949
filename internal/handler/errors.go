package handler

import (
	"errors"
	"net/http"
	"strconv"

	"tutorwallet/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError writes the status and body for a service error.
func respondError(c *gin.Context, err error) {
	var funds *domain.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":    funds.Error(),
			"code":     "insufficient_funds",
			"balance":  funds.Balance,
			"required": funds.Required,
		})
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "insufficient_funds"})
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
	case errors.Is(err, domain.ErrExceedsLimit):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "exceeds_limit"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_state"})
	case errors.Is(err, domain.ErrUpstreamConfig):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI tutor is not available right now", "code": "tutor_unconfigured"})
	case errors.Is(err, domain.ErrUpstreamQuota):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "AI tutor is busy, try again shortly", "code": "tutor_quota"})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI tutor request failed", "code": "tutor_failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "invalid_input"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
