package handler

import (
	"net/http"
	"strings"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/token"
	"github.com/gin-gonic/gin"
)

// Context keys for values set by the middleware chain.
const (
	ctxOperatorSignature = "operator_signature"
	ctxCurrentUser       = "current_user"
)

// OperatorSignatureMiddleware requires and verifies the X-Operator-Signature
// header. The verified claims carry the tenant's site URL and webhook
// endpoints into every downstream operation.
func OperatorSignatureMiddleware(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader("X-Operator-Signature")
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    "operator_signature_required",
				Message: "An operator signature is required",
			})
			return
		}

		sig, err := tokens.VerifyOperatorSignature(signature)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    "invalid_operator_signature",
				Message: "The operator signature could not be verified",
			})
			return
		}

		c.Set(ctxOperatorSignature, sig)
		c.Next()
	}
}

// AuthMiddleware verifies the bearer token and loads the live user record, so
// admin decisions always see the current is_admin flag rather than a stale
// claim.
func AuthMiddleware(tokens *token.Manager, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		value, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    "invalid_token",
				Message: "A bearer token is required",
			})
			return
		}

		claims, err := tokens.VerifyAccessToken(value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    "invalid_token",
				Message: "The access token could not be verified",
			})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    "invalid_token",
				Message: "The token subject no longer exists",
			})
			return
		}

		c.Set(ctxCurrentUser, user)
		c.Next()
	}
}

func operatorSignature(c *gin.Context) *token.OperatorSignature {
	if v, ok := c.Get(ctxOperatorSignature); ok {
		if sig, ok := v.(*token.OperatorSignature); ok {
			return sig
		}
	}
	return &token.OperatorSignature{}
}

func currentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxCurrentUser); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return nil
}
