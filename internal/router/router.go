package router

import (
	"github.com/gin-gonic/gin"
	thirdPartyI18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"

	"shortlink-go/internal/auth/tokens"
	"shortlink-go/internal/handler"
	"shortlink-go/internal/middleware"
)

type Options struct {
	ShortLinks     *handler.ShortLinkHandler
	Health         *handler.HealthHandler
	Verifier       tokens.Verifier
	Bundle         *thirdPartyI18n.Bundle
	Logger         *zap.Logger
	AllowOrigins   string
	AllowAnonymous bool
	// ShortenLimit 为空时不限流
	ShortenLimit gin.HandlerFunc
}

// New 组装中间件与路由
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.ZapGinLogger(opts.Logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CorsMiddleware(opts.AllowOrigins))
	r.Use(middleware.I18nMiddleware(opts.Bundle))
	// 注册全局错误中间件
	r.Use(middleware.GlobalErrorMiddleware())

	if opts.Health != nil {
		r.GET("/health", opts.Health.Health)
	}

	h := opts.ShortLinks
	requireUser := middleware.AuthMiddleware(opts.Verifier, true)
	shortenChain := []gin.HandlerFunc{}
	if opts.ShortenLimit != nil {
		shortenChain = append(shortenChain, opts.ShortenLimit)
	}
	shortenChain = append(shortenChain, middleware.AuthMiddleware(opts.Verifier, !opts.AllowAnonymous), h.Shorten)

	api := r.Group("/api")
	{
		api.POST("/shorten", shortenChain...)
		api.DELETE("/urls/:shortCode", requireUser, h.Delete)
		api.GET("/urls/:shortCode/stats", requireUser, h.Stats)
		api.GET("/my-urls", requireUser, h.MyURLs)
	}

	// 其余 GET 请求按短码跳转
	r.NoRoute(h.Redirect)
	return r
}
