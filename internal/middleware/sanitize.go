package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/gin-gonic/gin"
)

// SanitizeURL rejects requests whose raw URL smuggles encoded CR or LF characters.
func SanitizeURL() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.ToUpper(c.Request.URL.RawPath + "?" + c.Request.URL.RawQuery + c.Request.RequestURI)
		if strings.Contains(raw, "%0A") || strings.Contains(raw, "%0D") {
			GetLoggerFromContext(c).Warn("Rejected request URL with encoded line break")
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.Failure("Bad request URL"))
			return
		}
		c.Next()
	}
}
