package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shortlink-go/internal/auth/tokens"
	"shortlink-go/internal/codegen"
	"shortlink-go/internal/config"
	"shortlink-go/internal/events"
	"shortlink-go/internal/handler"
	"shortlink-go/internal/i18n"
	"shortlink-go/internal/middleware"
	"shortlink-go/internal/repository"
	"shortlink-go/internal/router"
	"shortlink-go/internal/service"
	"shortlink-go/pkg/logging"
	"shortlink-go/pkg/utils"
)

func startServer(r *gin.Engine, cfg config.ServerConfig, c *cron.Cron) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器
	go func() {
		logging.Logger.Info("Server is running on " + cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("Shutting down server...")

	// 先停止定时任务并等待正在执行的任务结束
	<-c.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logging.Logger.Info("Server exiting")
}

func scheduleJobs(cfg *config.Config, syncer *service.StatsSyncer, sweeper *service.ExpirySweeper) *cron.Cron {
	c := cron.New()

	if syncer != nil {
		if _, err := c.AddFunc(cfg.Stats.Cron, func() {
			if err := syncer.SyncStatistics(context.Background()); err != nil {
				logging.Logger.Error("Stats sync job failed", zap.Error(err))
			}
		}); err != nil {
			logging.Logger.Fatal("Failed to schedule stats job", zap.Error(err))
		}
	}

	if _, err := c.AddFunc(cfg.Sweeper.Cron, func() {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			logging.Logger.Error("Expiry sweep job failed", zap.Error(err))
		}
	}); err != nil {
		logging.Logger.Fatal("Failed to schedule sweeper job", zap.Error(err))
	}

	c.Start()
	return c
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志系统
	logging.InitLoggerFromConfig(cfg.Log)
	defer logging.Sync()
	logging.Logger.Info("Application started")

	repository.InitDB(cfg.DB, logging.Logger, logging.AtomicLevel)
	defer repository.CloseDB(repository.DB)

	ctx := context.Background()
	pool := repository.InitRedis(cfg.Redis)
	redisClient := repository.InitRedisClient(ctx, cfg.Redis)
	defer repository.CloseRedis()

	// 初始化 i18n（内置 TOML 语言包）
	bundle, err := i18n.InitI18n("en")
	if err != nil {
		logging.Logger.Fatal("Failed to initialize i18n", zap.Error(err))
	}

	var clicks events.ClickPublisher = events.NopClickPublisher{}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewAMQPClickPublisher(cfg.RabbitMQ)
		if err != nil {
			logging.Logger.Fatal("Failed to initialize click publisher", zap.Error(err))
		}
		clicks = publisher
	}
	defer func() {
		if err := clicks.Close(); err != nil {
			logging.Logger.Warn("Click publisher close failed", zap.Error(err))
		}
	}()

	store := repository.NewGormMappingStore(repository.DB)
	statsStore := repository.NewStatsStore(repository.DB)

	// 服务自身域名始终禁止作为跳转目标
	blocked := append([]string{utils.HostOf(cfg.Server.BaseURL)}, cfg.ShortLink.BlockedDomains...)
	domains, err := service.NewDomainPolicy(ctx, repository.NewDomainStore(repository.DB), blocked)
	if err != nil {
		logging.Logger.Fatal("Failed to load blocked domains", zap.Error(err))
	}

	deps := service.Deps{
		Store:        store,
		Generator:    codegen.NewRandomGenerator(cfg.ShortLink.CodeLength),
		Domains:      domains,
		Clicks:       clicks,
		Stats:        statsStore,
		BaseURL:      cfg.Server.BaseURL,
		MaxAttempts:  cfg.ShortLink.MaxAttempts,
		RetryBackoff: cfg.ShortLink.RetryBackoff,
	}
	var syncer *service.StatsSyncer
	if pool != nil {
		deps.Cache = repository.NewRedisLinkCache(pool, cfg.ShortLink.CacheTTL, cfg.ShortLink.NegativeCacheTTL)
		deps.Visits = service.NewRedisVisitRecorder(pool)
		syncer = service.NewStatsSyncer(store, statsStore, pool)
	}
	svc := service.NewShortLinkService(deps)
	sweeper := service.NewExpirySweeper(store, deps.Cache, cfg.Sweeper.BatchSize)

	var shortenLimit gin.HandlerFunc
	if redisClient != nil && cfg.RateLimit.Requests > 0 {
		limiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		shortenLimit = middleware.RateLimitMiddleware(limiter, cfg.RateLimit.Window)
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.New(router.Options{
		ShortLinks:     handler.NewShortLinkHandler(svc),
		Health:         handler.NewHealthHandler(repository.DB, pool),
		Verifier:       tokens.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Bundle:         bundle,
		Logger:         logging.Logger,
		AllowOrigins:   cfg.Server.AllowOrigins,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
		ShortenLimit:   shortenLimit,
	})

	c := scheduleJobs(cfg, syncer, sweeper)
	startServer(r, cfg.Server, c)
}
