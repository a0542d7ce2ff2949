package middleware

import (
	"net/http"

	"tutorwallet/internal/repository"

	"github.com/gin-gonic/gin"
)

// RequirePositiveBalance answers 402 when the caller's wallet is empty. Use after AuthRequired.
func RequirePositiveBalance(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		u, err := userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found", "code": "not_found"})
			return
		}
		if !u.WalletBalance.IsPositive() {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "Insufficient funds. Please add funds to your wallet.",
				"code":    "insufficient_funds",
				"balance": u.WalletBalance,
			})
			return
		}
		c.Next()
	}
}
