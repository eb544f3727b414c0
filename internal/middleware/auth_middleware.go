package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"shortlink-go/internal/apperrors"
	"shortlink-go/internal/auth/tokens"
)

const UserIDKey = "userID"

// AuthMiddleware 解析 Bearer 令牌并写入用户 ID
// required 为 false 时允许匿名访问，但携带了无效令牌仍然返回 401
func AuthMiddleware(verifier tokens.Verifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				_ = c.Error(apperrors.UnauthorizedError())
				c.Abort()
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			_ = c.Error(apperrors.UnauthorizedError())
			c.Abort()
			return
		}

		userID, err := verifier.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			zap.L().Debug("Token rejected", zap.Error(err))
			if errors.Is(err, tokens.ErrTokenExpired) {
				_ = c.Error(apperrors.TokenExpiredError())
			} else {
				_ = c.Error(apperrors.UnauthorizedError())
			}
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserIDFrom 返回已认证的用户 ID，匿名请求返回空字符串
func UserIDFrom(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
