package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
)

// googleOAuthHandler handles Google sign-in. It depends on the Google OAuth
// service for the code exchange and on the auth service to log the user in.
type googleOAuthHandler struct {
	googleOAuthService portssvc.GoogleOAuthSvc
	authService        portssvc.AuthSvcFacade
	posthog            *utils.PosthogClientWrapper
}

func newGoogleOAuthHandler(gs portssvc.GoogleOAuthSvc, as portssvc.AuthSvcFacade, posthog *utils.PosthogClientWrapper) *googleOAuthHandler {
	return &googleOAuthHandler{googleOAuthService: gs, authService: as, posthog: posthog}
}

// exchangeCode godoc
// @Summary Exchange a Google authorization code for a session token
// @Description Validates the Google ID token, then logs in the user with that email or creates one.
// @Tags oauth
// @Accept json
// @Produce json
// @Param code body dto.GoogleExchangeCodeRequest true "Authorization code"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 429 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /auth/google/exchange-code [post]
func (h *googleOAuthHandler) exchangeCode(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromContext(c)

	if !h.googleOAuthService.IsConfigured() {
		respondError(c, apperrors.NewAppError(http.StatusServiceUnavailable, "Google sign-in is not available", apperrors.ErrUnavailable))
		return
	}

	var req dto.GoogleExchangeCodeRequest
	if !bindJSON(c, &req, "Authorization code is required") {
		return
	}

	oauth2Token, err := h.googleOAuthService.ExchangeCodeForToken(ctx, req.Code)
	if err != nil {
		logger.Warn("Google code exchange failed", slog.String("error", err.Error()))
		respondError(c, apperrors.NewAppError(http.StatusUnauthorized, "Invalid or expired authorization code", err))
		return
	}

	info, err := h.googleOAuthService.ValidateIDToken(ctx, oauth2Token)
	if err != nil {
		logger.Warn("Google ID token validation failed", slog.String("error", err.Error()))
		respondError(c, apperrors.NewAppError(http.StatusUnauthorized, "Invalid Google ID token", err))
		return
	}

	result, err := h.authService.LoginWithGoogle(ctx, info)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("User signed in with Google", slog.String("user_id", result.User.UserID))
	middleware.PosthogEvent(c, h.posthog, result.User.UserID, "user_logged_in", map[string]any{"provider": "google"})
	c.JSON(http.StatusOK, dto.Success("Login successful", toLoginResponse(result)))
}
