package handler

import (
	"net/http"

	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves invitation and user administration endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Invite handles POST /invite
func (h *AdminHandler) Invite(c *gin.Context) {
	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.admin.Invite(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// CreateUser handles POST /users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.AdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.admin.CreateUser(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser handles PUT /users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req dto.AdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "User deleted"})
}

// ListUsers handles GET /users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindingError(c, err)
		return
	}

	users, total, err := h.admin.ListUsers(c.Request.Context(), currentUser(c), query.Page, query.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{
		Users:   users,
		Total:   total,
		Page:    query.Page,
		PerPage: query.PerPage,
	})
}
