package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/application/middleware"
	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
	"github.com/bivex/payment-recovery/internal/interfaces/http/response"
)

// AuthHandler manages operator session tokens
type AuthHandler struct {
	jwt *middleware.JWTMiddleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwt *middleware.JWTMiddleware) *AuthHandler {
	return &AuthHandler{jwt: jwt}
}

// Logout revokes the presented access token for the remainder of its lifetime
// @Summary Revoke the current operator token
// @Tags auth
// @Produce json
// @Router /admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	if jti == "" {
		response.Unauthorized(c, "No active session")
		return
	}

	// Blocklist the token only as long as it would otherwise stay valid.
	remaining := h.jwt.AccessTTL()
	if exp, ok := c.Get("token_exp"); ok {
		if expiresAt, ok := exp.(time.Time); ok {
			remaining = time.Until(expiresAt)
		}
	}
	if remaining <= 0 {
		response.OK(c, gin.H{"status": "revoked"})
		return
	}

	if err := h.jwt.RevokeToken(c.Request.Context(), jti, remaining); err != nil {
		logging.Logger.Error("Failed to revoke token", zap.Error(err))
		response.InternalError(c, "Failed to revoke token")
		return
	}

	response.OK(c, gin.H{"status": "revoked"})
}
