package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/ratelimit"
	"github.com/linskybing/zeera/pkg/response"
)

// RateLimit rejects clients that exhausted their bucket in store. Buckets are
// keyed by scope and client address so that separate limiters never share one.
func RateLimit(store *ratelimit.Store, scope, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store.Allow(scope + ":" + c.ClientIP()) {
			c.Next()
			return
		}
		wait := int(math.Ceil(store.RetryAfter().Seconds()))
		c.Header("Retry-After", strconv.Itoa(wait))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
			StatusCode: http.StatusTooManyRequests,
			Error:      message,
		})
	}
}
