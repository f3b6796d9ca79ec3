package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bivex/payment-recovery/internal/interfaces/http/response"
)

// RequireOperator ensures the authenticated caller carries the operator role.
// Runs after Authenticate, which populates the role from the token claims.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || role != "operator" {
			response.Forbidden(c, "Operator access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
