// Package middleware 提供 HTTP 中间件
package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/interfaces/http/dto"
	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
	"mam-search-api/pkg/utils"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

const authenticatedKey = "authenticated"

// Auth 认证中间件
func Auth(cfg AuthConfig) gin.HandlerFunc {
	// 初始化 JWT 管理器
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		// 未启用认证或命中跳过路径，直接放行
		if !cfg.Enabled || skipped(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		// 获取 Authorization Header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, errors.ErrTokenMissing)
			return
		}

		// 解析 Bearer Token
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, errors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		// 校验签名、签发者与过期时间
		claims, err := jwtManager.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			if stderrors.Is(err, utils.ErrExpiredToken) {
				abortWithError(c, errors.ErrTokenExpired)
				return
			}
			abortWithError(c, errors.ErrTokenInvalid)
			return
		}

		// 注入身份信息到 Context
		c.Set(authenticatedKey, true)
		c.Set("tenant_id", claims.TenantID)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		ctx := c.Request.Context()
		if claims.UserID != "" {
			ctx = logger.WithContext(ctx, logger.UserIDKey, claims.UserID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// IsAuthenticated 请求是否携带了有效 Token
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool(authenticatedKey)
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// abortWithError 终止请求并写入统一错误响应
func abortWithError(c *gin.Context, appErr *errors.AppError) {
	dto.AppError(c, appErr)
	c.Abort()
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
