package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains route paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/":       true,
	"/health": true,
}

// PosthogMiddleware creates a Gin middleware handler that tracks API events with PostHog.
// Events carry the route template, never the raw path, so path tokens are not shipped.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip if PostHog is not initialized or path is in skip list
		if !posthogClient.IsInitialized() || pathsToSkip[c.FullPath()] {
			c.Next()
			return
		}

		// Process request first
		c.Next()

		// Skip if there was an error processing the request
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		// Only authenticated requests are attributed to a user
		identity, exists := GetIdentityFromContext(c)
		if !exists {
			return
		}

		// Create event name from route path (e.g., "/auth/profile" -> "auth_profile")
		eventName := strings.TrimPrefix(c.FullPath(), "/")
		eventName = strings.ReplaceAll(eventName, "/", "_")

		// Skip if event name is empty (e.g., for 404s)
		if eventName == "" {
			return
		}

		posthogClient.Enqueue(identity.UserID, eventName, map[string]any{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status_code": c.Writer.Status(),
			"role":        string(identity.Role),
		})
	}
}

// PosthogEvent sends a custom event for distinctID from a handler.
// Used for flows like login where no identity is on the request yet.
func PosthogEvent(c *gin.Context, posthogClient *utils.PosthogClientWrapper, distinctID, eventName string, properties map[string]any) {
	if !posthogClient.IsInitialized() || distinctID == "" {
		return
	}

	// Ensure properties is not nil
	if properties == nil {
		properties = make(map[string]any)
	}
	properties["method"] = c.Request.Method
	properties["route"] = c.FullPath()

	posthogClient.Enqueue(distinctID, eventName, properties)
}
