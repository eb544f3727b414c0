package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shortlink-go/constant"
	"shortlink-go/internal/apperrors"
)

// Limiter 判断某个客户端在当前窗口内是否还能继续请求
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// RedisFixedWindowLimiter 基于 INCR + EXPIRE 的固定窗口限流
type RedisFixedWindowLimiter struct {
	client   *goredis.Client
	requests int
	window   time.Duration
	now      func() time.Time
}

func NewRedisFixedWindowLimiter(client *goredis.Client, requests int, window time.Duration) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{client: client, requests: requests, window: window, now: time.Now}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, client string) (bool, error) {
	windowSeconds := int64(l.window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	key := constant.GetRateLimitKey(client, l.now().Unix()/windowSeconds)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Duration(windowSeconds)*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= int64(l.requests), nil
}

// RateLimitMiddleware 按客户端 IP 限流；限流后端故障时放行
func RateLimitMiddleware(limiter Limiter, retryAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			zap.L().Warn("Rate limiter unavailable, request allowed",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
			_ = c.Error(apperrors.RateLimitedError())
			c.Abort()
			return
		}
		c.Next()
	}
}
