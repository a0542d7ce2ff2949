package middleware

import (
	"tutorwallet/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired checks that the authenticated user has the ADMIN role.
func AdminRequired() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
