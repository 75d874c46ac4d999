package middlewares

import (
	"net/http"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/mosaic/tool"
)

const limiterIdle = 10 * time.Minute

// RateLimit allows perSecond requests per client IP with an equal burst.
// A non-positive limit disables it.
func RateLimit(perSecond int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	var mu sync.Mutex
	limiters := ttlworker.NewCache[string, *rate.Limiter](limiterIdle)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		limiter := limiters.Get(ip)
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
		limiters.Set(ip, limiter)
		mu.Unlock()

		if !limiter.Allow() {
			tool.DefaultLogger.Warnf("[RateLimit] %s exceeded %d requests/s on %s", ip, perSecond, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, tool.FastReturnError("Too many requests"))
			return
		}
		c.Next()
	}
}
