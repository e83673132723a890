package handler

import (
	"net/http"

	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gin-gonic/gin"
)

// UserHandler serves the authenticated self-service endpoints.
type UserHandler struct {
	account *service.AccountService
}

// NewUserHandler creates the self-service handler
func NewUserHandler(account *service.AccountService) *UserHandler {
	return &UserHandler{account: account}
}

// Get handles GET /user
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.account.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangeEmail handles PUT /user/email
func (h *UserHandler) ChangeEmail(c *gin.Context) {
	var req dto.ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.account.ChangeEmail(c.Request.Context(), currentUser(c).ID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePhone handles PUT /user/phone
func (h *UserHandler) ChangePhone(c *gin.Context) {
	var req dto.ChangePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.account.ChangePhone(c.Request.Context(), currentUser(c).ID, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ConfirmChange handles POST /user/change/confirm. It completes a pending
// email or phone change and needs no session: possession of the change token
// is the proof.
func (h *UserHandler) ConfirmChange(c *gin.Context) {
	var req dto.ConfirmChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.account.ConfirmChange(c.Request.Context(), req.Type, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword handles PUT /user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.account.ChangePassword(c.Request.Context(), currentUser(c).ID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}
