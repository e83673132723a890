package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gatehouse/gatehouse/internal/dto"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMiddleware throttles credential endpoints per client IP. A limiter
// backend failure lets the request through; availability of the identity
// service outranks the throttle.
func RateLimitMiddleware(limiter *service.RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Code:    "too_many_requests",
				Message: "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
