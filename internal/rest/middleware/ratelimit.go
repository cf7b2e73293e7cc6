package middleware

import (
	"time"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware caps a route at perMinute requests with a burst of the
// same size. A non-positive limit disables it.
func RateLimitMiddleware(perMinute int, logger *logger.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warnw("rate limit exceeded",
				"path", c.FullPath(),
				"client_ip", c.ClientIP(),
			)
			_ = c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests, slow down").
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
