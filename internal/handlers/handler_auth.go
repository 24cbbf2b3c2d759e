package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/gin-gonic/gin"
)

const forgotPasswordAck = "If that email exists, a reset link has been sent."

// authHandler handles account lifecycle requests.
type authHandler struct {
	authService portssvc.AuthSvcFacade
	posthog     *utils.PosthogClientWrapper
}

func newAuthHandler(as portssvc.AuthSvcFacade, posthog *utils.PosthogClientWrapper) *authHandler {
	return &authHandler{authService: as, posthog: posthog}
}

// register godoc
// @Summary Register new user
// @Description Creates a user with role "user". Client-chosen roles other than "user" are rejected.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 429 {object} dto.APIResponse
// @Router /auth/register [post]
func (h *authHandler) register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req, "All fields are required") {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), portssvc.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.PosthogEvent(c, h.posthog, user.UserID, "user_registered", nil)
	c.JSON(http.StatusCreated, dto.Success("User registered successfully", dto.ToUserResponse(user)))
}

// login godoc
// @Summary User login
// @Description Authenticates by email and password and returns a session token valid for one hour.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 429 {object} dto.APIResponse
// @Router /auth/login [post]
func (h *authHandler) login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req, "All fields are required") {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.PosthogEvent(c, h.posthog, result.User.UserID, "user_logged_in", map[string]any{"provider": "password"})
	c.JSON(http.StatusOK, dto.Success("Login successful", toLoginResponse(result)))
}

func toLoginResponse(result *portssvc.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.ToUserResponse(result.User),
	}
}

// profile godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/profile [get]
func (h *authHandler) profile(c *gin.Context) {
	userID, ok := currentIdentityUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Profile fetched", dto.ToUserResponse(user)))
}

// changeUsername godoc
// @Summary Change username
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ChangeUsernameRequest true "New username"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /auth/username [patch]
func (h *authHandler) changeUsername(c *gin.Context) {
	userID, ok := currentIdentityUserID(c)
	if !ok {
		return
	}
	var req dto.ChangeUsernameRequest
	if !bindJSON(c, &req, "Username is required") {
		return
	}

	user, err := h.authService.ChangeUsername(c.Request.Context(), userID, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Username updated", dto.ToUserResponse(user)))
}

// changeEmail godoc
// @Summary Change email
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ChangeEmailRequest true "New email"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /auth/email [patch]
func (h *authHandler) changeEmail(c *gin.Context) {
	userID, ok := currentIdentityUserID(c)
	if !ok {
		return
	}
	var req dto.ChangeEmailRequest
	if !bindJSON(c, &req, "Valid email required") {
		return
	}

	user, err := h.authService.ChangeEmail(c.Request.Context(), userID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Email updated", dto.ToUserResponse(user)))
}

// changePassword godoc
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /auth/password [patch]
func (h *authHandler) changePassword(c *gin.Context) {
	userID, ok := currentIdentityUserID(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req, "Both passwords required") {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Password updated", nil))
}

// forgotPassword godoc
// @Summary Request a password reset
// @Description Always answers with the same acknowledgment. In demo mode the reset link is included.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.ForgotPasswordRequest true "Account email"
// @Success 200 {object} dto.APIResponse{data=dto.ForgotPasswordResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 429 {object} dto.APIResponse
// @Router /auth/forgot-password [post]
func (h *authHandler) forgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, &req, "Valid email required") {
		return
	}

	result, err := h.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	var data any
	if result.ResetLink != "" {
		data = dto.ForgotPasswordResponse{ResetLink: result.ResetLink, ResetToken: result.ResetToken}
	}
	c.JSON(http.StatusOK, dto.Success(forgotPasswordAck, data))
}

// resetPassword godoc
// @Summary Reset password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Raw reset token"
// @Param body body dto.ResetPasswordRequest true "New password"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse
// @Failure 429 {object} dto.APIResponse
// @Router /auth/reset-password/{token} [post]
func (h *authHandler) resetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req, "New password must be at least 6 characters") {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Password reset successful. Please login with your new password.", nil))
}
