package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"

	"shortlink-go/constant"
	"shortlink-go/internal/model"
	"shortlink-go/pkg/logging"
)

// GoneNotFound 负缓存标记：短码不存在
const GoneNotFound = "not_found"

// CachedLink 缓存短链的静态字段；点击数不缓存，配额以数据库原子自增为准。
// Gone 非空表示终态（不存在 / 已删除 / 已过期 / 配额用尽）。
type CachedLink struct {
	ID        uint       `json:"id,omitempty"`
	TargetURL string     `json:"targetUrl,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	MaxClicks *int64     `json:"maxClicks,omitempty"`
	Gone      string     `json:"gone,omitempty"`
}

// CachedFromLink 由数据库记录构造缓存项
func CachedFromLink(link *model.ShortLink) *CachedLink {
	c := &CachedLink{
		ID:        link.ID,
		TargetURL: link.TargetURL,
		ExpiresAt: link.ExpiresAt,
		MaxClicks: link.MaxClicks,
	}
	if !link.Active {
		c = &CachedLink{Gone: link.RetiredReason}
		if c.Gone == "" {
			c.Gone = model.RetiredReasonDeleted
		}
	}
	return c
}

type LinkCache interface {
	Get(ctx context.Context, shortCode string) (*CachedLink, bool)
	Set(ctx context.Context, shortCode string, link *CachedLink)
	Delete(ctx context.Context, shortCodes ...string)
}

type RedisLinkCache struct {
	pool        *redis.Pool
	ttl         time.Duration
	negativeTTL time.Duration
	nowFunc     func() time.Time
}

func NewRedisLinkCache(pool *redis.Pool, ttl, negativeTTL time.Duration) *RedisLinkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if negativeTTL <= 0 {
		negativeTTL = 5 * time.Minute
	}
	return &RedisLinkCache{pool: pool, ttl: ttl, negativeTTL: negativeTTL, nowFunc: time.Now}
}

func (c *RedisLinkCache) Get(ctx context.Context, shortCode string) (*CachedLink, bool) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		logging.Logger.Warn("Redis get connection failed", zap.Error(err))
		return nil, false
	}
	defer closeConn(conn)

	cacheKey := constant.GetShortCodeKey(shortCode)
	cachedValue, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", cacheKey))
	if err != nil {
		if err != redis.ErrNil {
			logging.Logger.Warn("Error getting from Redis",
				zap.String("cache_key", cacheKey),
				zap.Error(err))
		}
		return nil, false
	}

	var link CachedLink
	if err := json.Unmarshal(cachedValue, &link); err != nil {
		logging.Logger.Warn("Failed to unmarshal cached value",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
		return nil, false
	}
	return &link, true
}

// Set 正常项缓存 ttl（不超过过期时间），不存在的短码缓存 negativeTTL 防穿透，其余终态缓存 ttl
func (c *RedisLinkCache) Set(ctx context.Context, shortCode string, link *CachedLink) {
	ttl := c.ttl
	switch {
	case link.Gone == GoneNotFound:
		ttl = c.negativeTTL
	case link.Gone == "" && link.ExpiresAt != nil:
		if remaining := link.ExpiresAt.Sub(c.nowFunc()); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl < time.Second {
		return
	}

	cachedValue, err := json.Marshal(link)
	if err != nil {
		return
	}

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		logging.Logger.Warn("Redis get connection failed", zap.Error(err))
		return
	}
	defer closeConn(conn)

	cacheKey := constant.GetShortCodeKey(shortCode)
	if _, err := redis.DoContext(conn, ctx, "SET", cacheKey, cachedValue, "EX", int64(ttl/time.Second)); err != nil {
		logging.Logger.Error("设置缓存失败",
			zap.String("cache_key", cacheKey),
			zap.Error(err),
		)
	}
}

func (c *RedisLinkCache) Delete(ctx context.Context, shortCodes ...string) {
	if len(shortCodes) == 0 {
		return
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		logging.Logger.Warn("Redis get connection failed", zap.Error(err))
		return
	}
	defer closeConn(conn)

	args := make([]interface{}, 0, len(shortCodes))
	for _, code := range shortCodes {
		args = append(args, constant.GetShortCodeKey(code))
	}
	if _, err := redis.DoContext(conn, ctx, "DEL", args...); err != nil {
		logging.Logger.Warn("Redis 删除缓存失败",
			zap.Strings("short_codes", shortCodes),
			zap.Error(err))
	}
}

// NopLinkCache 未配置 Redis 时使用
type NopLinkCache struct{}

func (NopLinkCache) Get(context.Context, string) (*CachedLink, bool) { return nil, false }
func (NopLinkCache) Set(context.Context, string, *CachedLink)        {}
func (NopLinkCache) Delete(context.Context, ...string)               {}
