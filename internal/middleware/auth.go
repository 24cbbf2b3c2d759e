package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/gin-gonic/gin"
)

const (
	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is not valid"
	msgAccessDenied = "Access denied"
)

// AuthMiddleware creates a Gin middleware handler that validates bearer session tokens.
func AuthMiddleware(tokenSvc portssvc.SessionTokenSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromContext(c)

		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Warn("Authorization header missing or malformed")
			abortWithAppError(c, apperrors.NewUnauthorizedError(msgNoToken))
			return
		}

		identity, err := tokenSvc.Verify(c.Request.Context(), tokenString)
		if err != nil {
			// err keeps the expired/forged distinction for the log only.
			logger.Warn("Invalid session token", slog.String("error", err.Error()))
			abortWithAppError(c, apperrors.NewUnauthorizedError(msgInvalidToken))
			return
		}

		enrichedLogger := logger.With(
			slog.String("user_id", identity.UserID),
			slog.String("role", string(identity.Role)),
		)

		c.Set(string(identityKey), identity)
		ctx := context.WithValue(c.Request.Context(), identityKey, identity)
		c.Request = c.Request.WithContext(ctx)
		setLogger(c, enrichedLogger)

		c.Next()
	}
}

// RequireRole rejects authenticated callers whose role is not in allowed.
// It must be mounted after AuthMiddleware; a missing identity is treated as unauthenticated.
func RequireRole(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentityFromContext(c)
		if !ok {
			abortWithAppError(c, apperrors.NewUnauthorizedError(msgNoToken))
			return
		}
		if !identity.HasRole(allowed...) {
			GetLoggerFromContext(c).Warn("Role not permitted for route", slog.String("route", c.FullPath()))
			abortWithAppError(c, apperrors.NewForbiddenError(msgAccessDenied))
			return
		}
		c.Next()
	}
}

func abortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.Code, dto.Failure(appErr.Message))
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
