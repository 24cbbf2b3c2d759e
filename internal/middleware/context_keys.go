package middleware

import (
	"github.com/SscSPs/shope_lite/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// identityKey is the key used to store the authenticated caller in both contexts.
const identityKey = contextKey("identity")

// GetIdentityFromContext retrieves the authenticated identity set by AuthMiddleware.
func GetIdentityFromContext(c *gin.Context) (*domain.Identity, bool) {
	val, exists := c.Get(string(identityKey))
	if !exists {
		// check in the request context as well
		val = c.Request.Context().Value(identityKey)
		if val == nil {
			return nil, false
		}
	}

	identity, ok := val.(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	identity, ok := GetIdentityFromContext(c)
	if !ok {
		return "", false
	}
	return identity.UserID, true
}
