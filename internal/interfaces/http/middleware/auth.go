// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tattoo-ai-api/pkg/errors"
	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	Secret string
	Issuer string
	// Required 为 false 时没有 Authorization 头的请求以匿名身份放行；
	// 携带了无效令牌的请求总是被拒绝
	Required bool
}

// Auth Bearer 令牌认证中间件，用户 ID 写入 gin 与日志上下文
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		if isProbePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Required {
				abortUnauthorized(c, errors.ErrTokenMissing)
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, errors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		claims, err := jwtManager.ParseToken(strings.TrimSpace(token))
		if err != nil {
			if err == utils.ErrExpiredToken {
				abortUnauthorized(c, errors.ErrTokenExpired)
				return
			}
			abortUnauthorized(c, errors.ErrTokenInvalid)
			return
		}

		c.Set("user_id", claims.UserID)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserIDFromGin 当前请求的用户 ID，匿名请求为空
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}

func abortUnauthorized(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     http.StatusUnauthorized,
		"message":  appErr.Message,
		"error":    gin.H{"error_code": appErr.Code, "details": appErr.Detail},
		"trace_id": c.GetString("trace_id"),
	})
}
