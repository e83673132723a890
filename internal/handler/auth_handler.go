package handler

import (
	"net/http"

	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves signup, the token endpoint and the confirmation and
// recovery flows.
type AuthHandler struct {
	auth    *service.AuthService
	account *service.AccountService
}

// NewAuthHandler creates the authentication handler
func NewAuthHandler(auth *service.AuthService, account *service.AccountService) *AuthHandler {
	return &AuthHandler{auth: auth, account: account}
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req, operatorSignature(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Token handles POST /token (password and refresh_token grants)
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	pair, err := h.auth.Token(c.Request.Context(), req, operatorSignature(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Confirm handles POST /confirm
func (h *AuthHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.account.Confirm(c.Request.Context(), req.Type, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// Resend handles POST /resend
func (h *AuthHandler) Resend(c *gin.Context) {
	var req dto.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.account.ResendConfirmation(c.Request.Context(), req.Email, req.Phone); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Confirmation sent"})
}

// Reset handles POST /reset. The response never reveals whether the account
// exists.
func (h *AuthHandler) Reset(c *gin.Context) {
	var req dto.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.account.RequestReset(c.Request.Context(), req.Username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Recovery instructions sent"})
}

// ResetConfirm handles POST /reset/confirm
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var req dto.ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.account.ConfirmReset(c.Request.Context(), req.RecoveryToken, req.Password); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

// AcceptInvite handles POST /invite/accept
func (h *AuthHandler) AcceptInvite(c *gin.Context) {
	var req dto.AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.account.AcceptInvite(c.Request.Context(), req.Type, req.InvitationToken, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
