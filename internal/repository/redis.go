package repository

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shortlink-go/internal/config"
	"shortlink-go/pkg/logging"
)

var (
	RedisPool   *redis.Pool     // 缓存与访问统计（redigo）
	RedisClient *goredis.Client // 限流（go-redis）
)

// InitRedis 初始化 redigo 连接池；未配置地址时返回 nil，调用方降级为无缓存
func InitRedis(cfg config.RedisConfig) *redis.Pool {
	if cfg.Addr == "" {
		logging.Logger.Warn("Redis address not configured, cache and stats disabled")
		return nil
	}
	addr := cfg.Addr
	password := cfg.Password

	RedisPool = &redis.Pool{
		MaxIdle:     10,
		MaxActive:   100,
		IdleTimeout: 240 * time.Second,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			conn, err := redis.Dial("tcp", addr,
				redis.DialDatabase(cfg.DB),
				redis.DialConnectTimeout(2*time.Second),
				redis.DialReadTimeout(time.Second),
				redis.DialWriteTimeout(time.Second),
			)
			if err != nil {
				logging.Logger.Error("Failed to connect Redis",
					zap.String("addr", addr),
					zap.Error(err),
				)
				return nil, err
			}

			// 如果设置了密码，执行 AUTH
			if password != "" {
				if _, authErr := conn.Do("AUTH", password); authErr != nil {
					if closeErr := conn.Close(); closeErr != nil {
						logging.Logger.Error("Failed to close redis connection after AUTH failure",
							zap.String("addr", addr),
							zap.Error(closeErr),
						)
					}
					logging.Logger.Error("Redis AUTH failed",
						zap.String("addr", addr),
						zap.Error(authErr),
					)
					return nil, authErr
				}
			}

			logging.Logger.Debug("Redis connection established",
				zap.String("addr", addr),
				zap.Bool("auth", password != ""),
			)
			return conn, nil
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) > time.Minute {
				_, err := c.Do("PING")
				if err != nil {
					logging.Logger.Warn("Redis connection health check failed",
						zap.String("addr", addr),
						zap.Error(err),
					)
				}
				return err
			}
			return nil
		},
	}
	return RedisPool
}

// InitRedisClient 初始化 go-redis 客户端；未配置地址时返回 nil
func InitRedisClient(ctx context.Context, cfg config.RedisConfig) *goredis.Client {
	if cfg.Addr == "" {
		return nil
	}
	RedisClient = goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		// 不阻断启动，限流器在后端异常时放行
		logging.Logger.Warn("Redis client ping failed", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return RedisClient
}

// PingRedis 健康检查
func PingRedis(pool *redis.Pool) error {
	conn := pool.Get()
	defer closeConn(conn)
	_, err := conn.Do("PING")
	return err
}

// CloseRedis 关闭连接池与客户端
func CloseRedis() {
	if RedisPool != nil {
		if err := RedisPool.Close(); err != nil {
			logging.Logger.Warn("Redis pool close failed", zap.Error(err))
		}
	}
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Logger.Warn("Redis client close failed", zap.Error(err))
		}
	}
}

func closeConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		logging.Logger.Error("Failed to close Redis connection",
			zap.Error(err),
			zap.String("operation", "close"),
			zap.String("connection_type", "redis"),
		)
	}
}
