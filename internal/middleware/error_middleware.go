package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/i18n"
	"shortlink-go/response"
)

// GlobalErrorMiddleware 全局错误中间件：把 c.Errors 中的 AppError 翻译后输出统一错误体
func GlobalErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		ctx := c.Request.Context()
		for _, ginErr := range c.Errors {
			var appErr *apperrors.AppError
			if errors.As(ginErr.Err, &appErr) {
				if appErr.Cause != nil {
					zap.L().Warn("Request failed",
						zap.String("path", c.Request.URL.Path),
						zap.String("reason", appErr.Reason),
						zap.Error(appErr.Cause),
					)
				}
				msg := i18n.T(ctx, appErr.Message, nil)
				c.AbortWithStatusJSON(appErr.Code, response.Error(appErr.Reason, msg))
				return
			}
		}

		// 默认处理未定义的错误
		zap.L().Error("Unhandled request error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(c.Errors.Last().Err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			response.Error(apperrors.ReasonInternal, i18n.T(ctx, "error.internal", nil)))
	}
}
