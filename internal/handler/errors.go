package handler

import (
	"errors"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gin-gonic/gin"
)

// respondError renders any service failure. Webhook rejections pass the
// operator's status and body through untouched; typed domain errors keep
// their status and code; anything else is an opaque 500.
func respondError(c *gin.Context, err error) {
	var hookErr *hook.HookError
	if errors.As(err, &hookErr) {
		c.JSON(hookErr.Status, hookErr.Body)
		return
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.Status, dto.ErrorResponse{
			Code:    domainErr.Code,
			Message: domainErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Code:    "internal_error",
		Message: "Internal Server Error",
	})
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    "invalid_request",
		Message: err.Error(),
	})
}
