package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/SscSPs/shope_lite/internal/middleware"
	"github.com/gin-gonic/gin"
)

type adminHandler struct {
	userService portssvc.UserSvcFacade
}

func newAdminHandler(us portssvc.UserSvcFacade) *adminHandler {
	return &adminHandler{userService: us}
}

// adminProbe godoc
// @Summary Admin-only probe
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RoleProbeResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /auth/admin [get]
func (h *adminHandler) adminProbe(c *gin.Context) {
	h.probe(c, "Welcome, admin!")
}

// staffProbe godoc
// @Summary Probe for any signed-in role
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RoleProbeResponse}
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /auth/staff [get]
func (h *adminHandler) staffProbe(c *gin.Context) {
	h.probe(c, "Welcome, staff!")
}

func (h *adminHandler) probe(c *gin.Context, message string) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.Failure("No token, authorization denied"))
		return
	}
	c.JSON(http.StatusOK, dto.Success(message, dto.RoleProbeResponse{
		UserID: identity.UserID,
		Role:   string(identity.Role),
	}))
}

// listUsers godoc
// @Summary List users
// @Description Lists users in creation order. Pass the returned nextToken to fetch the following page.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (1-100)" default(20)
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /auth/admin/users [get]
func (h *adminHandler) listUsers(c *gin.Context) {
	var params dto.ListUsersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, dto.Failure("Invalid query parameters"))
		return
	}

	page, err := h.userService.ListUsers(c.Request.Context(), params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Users fetched", dto.ToListUserResponse(page.Users, page.NextToken)))
}
