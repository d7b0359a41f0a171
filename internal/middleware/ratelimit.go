package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit allows max requests per client IP and route in each fixed window.
// Counting happens in Redis so every instance shares the budget. When Redis is
// unreachable requests pass.
func RateLimit(rdb *redis.Client, max int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := time.Now().UnixNano()
		slot := now / int64(window)
		key := fmt.Sprintf("dailyhi:rate_limit:%s:%s:%d", c.FullPath(), ip, slot)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, window+time.Second)
		}
		if count > max {
			log.Info("rate limited", zap.String("ip", ip), zap.String("path", c.FullPath()))
			response.TooManyRequests(c, time.Duration(int64(window)-now%int64(window)))
			return
		}
		c.Next()
	}
}
