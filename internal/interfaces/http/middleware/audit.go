package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"mam-search-api/pkg/logger"
)

// AuditConfig 访问日志配置
type AuditConfig struct {
	// Enabled 是否启用
	Enabled bool
	// SkipPaths 跳过记录的路径
	SkipPaths []string
}

// Audit 访问日志中间件，5xx 记为 warn
func Audit(cfg AuditConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 构建跳过路径映射
	skipMap := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		// 检查是否跳过
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		// 处理请求
		c.Next()

		// 构建日志字段
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn(c.Request.Context(), "api request failed", fields...)
			return
		}
		logger.Info(c.Request.Context(), "api request", fields...)
	}
}

// DefaultAuditSkipPaths 默认跳过访问日志的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
