package server

import (
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit allows qps requests per second per client address, with a burst
// of at least one. Loopback clients are the extension itself and are not
// limited.
func RateLimit(qps float64) gin.HandlerFunc {
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	get := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[ip]
		if !ok {
			l = rate.NewLimiter(rate.Limit(qps), burst)
			limiters[ip] = l
		}
		return l
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if addr := net.ParseIP(ip); addr != nil && addr.IsLoopback() {
			c.Next()
			return
		}
		if !get(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}
