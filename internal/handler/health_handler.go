package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-go/internal/repository"
	"shortlink-go/response"
)

type HealthHandler struct {
	db   *gorm.DB
	pool *redis.Pool
}

func NewHealthHandler(db *gorm.DB, pool *redis.Pool) *HealthHandler {
	return &HealthHandler{db: db, pool: pool}
}

type healthStatus struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Health 数据库不可用时返回 503；Redis 状态仅作展示
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{Database: "up", Redis: "disabled"}
	code := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		zap.L().Error("Database health check failed", zap.Error(err))
		status.Database = "down"
		code = http.StatusServiceUnavailable
	}

	if h.pool != nil {
		status.Redis = "up"
		if err := repository.PingRedis(h.pool); err != nil {
			zap.L().Warn("Redis health check failed", zap.Error(err))
			status.Redis = "down"
		}
	}

	c.JSON(code, &response.Response[healthStatus]{
		Success:   code == http.StatusOK,
		Message:   "ok",
		Data:      status,
		Timestamp: time.Now().UnixMilli(),
	})
}
