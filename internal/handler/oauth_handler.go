package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gatehouse/gatehouse/internal/token"
	"github.com/gin-gonic/gin"
)

// OAuthHandler serves the federation entry point and the vendor callback.
type OAuthHandler struct {
	oauth   *service.OAuthService
	siteURL string
}

// NewOAuthHandler creates the OAuth handler
func NewOAuthHandler(oauth *service.OAuthService, siteURL string) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, siteURL: siteURL}
}

// Authorize handles GET /authorize
func (h *OAuthHandler) Authorize(c *gin.Context) {
	target, err := h.oauth.AuthorizeURL(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, target)
}

// Callback handles GET /authorize/callback. The browser always ends up back
// on the tenant's site: token parameters on success, an error code otherwise.
func (h *OAuthHandler) Callback(c *gin.Context) {
	sig := operatorSignature(c)
	returnTo := h.returnURL(sig)

	pair, err := h.oauth.Callback(c.Request.Context(), c.Query("code"), c.Query("state"), sig)
	if err != nil {
		c.Redirect(http.StatusFound, returnTo+"?error="+url.QueryEscape(errorCode(err)))
		return
	}

	params := url.Values{}
	params.Set("access_token", pair.AccessToken)
	params.Set("refresh_token", pair.RefreshToken)
	params.Set("token_type", pair.TokenType)

	c.Redirect(http.StatusFound, returnTo+"?"+params.Encode())
}

func (h *OAuthHandler) returnURL(sig *token.OperatorSignature) string {
	if sig.RedirectURL != "" {
		return sig.RedirectURL
	}
	if sig.SiteURL != "" {
		return sig.SiteURL
	}
	return h.siteURL
}

func errorCode(err error) string {
	var hookErr *hook.HookError
	if errors.As(err, &hookErr) {
		return "hook_error"
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	return "internal_error"
}
