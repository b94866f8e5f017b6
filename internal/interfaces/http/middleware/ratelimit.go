package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Requests 窗口内允许的请求数
	Requests int
	// Window 统计窗口
	Window time.Duration
}

// RateLimiter 限流器接口，返回是否放行与剩余配额
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RateLimit 限流中间件，按租户与路由计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 设置默认值
	if cfg.Requests <= 0 {
		cfg.Requests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	limit := strconv.Itoa(cfg.Requests)

	return func(c *gin.Context) {
		// 构建限流 Key：ratelimit:tenant_id:route
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = "anonymous"
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// 检查限流
		allowed, remaining, err := limiter.Allow(c.Request.Context(), "ratelimit:"+tenantID+":"+route, cfg.Requests, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		// 写入配额响应头
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds()+0.5)))
			abortWithError(c, errors.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}

// LocalRateLimiter 进程内令牌桶限流，每个 key 一个桶
type LocalRateLimiter struct {
	mu      sync.Mutex
	burst   int
	buckets map[string]*rate.Limiter
}

// NewLocalRateLimiter 创建进程内限流器，burst 为 0 时取 limit
func NewLocalRateLimiter(burst int) *LocalRateLimiter {
	return &LocalRateLimiter{burst: burst, buckets: make(map[string]*rate.Limiter)}
}

// Allow 实现 RateLimiter
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	l.mu.Lock()
	// 按 key 懒创建令牌桶
	lim, ok := l.buckets[key]
	if !ok {
		burst := l.burst
		if burst <= 0 {
			burst = limit
		}
		lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), burst)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	allowed := lim.Allow()
	remaining := int(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, nil
}
