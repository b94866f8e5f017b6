package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"mam-search-api/internal/domain/entity"
	"mam-search-api/pkg/errors"
	"mam-search-api/pkg/logger"
)

// TenantResolver 按编码解析租户
type TenantResolver interface {
	GetByCode(ctx context.Context, code string) (*entity.Tenant, error)
}

// TenantConfig 租户中间件配置
type TenantConfig struct {
	// HeaderName 从 Header 中获取租户 ID 的字段名
	HeaderName string
	// DefaultCode 未携带租户时回退的租户编码，为空则不回退
	DefaultCode string
	// Resolver 解析 DefaultCode
	Resolver TenantResolver
}

const tenantCodeTTL = 5 * time.Minute

// Tenant 多租户上下文中间件
// 顺序：JWT 中的 tenant_id，其次 Header，最后默认租户编码
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Tenant-ID"
	}
	codes := expirable.NewLRU[string, string](16, nil, tenantCodeTTL)

	return func(c *gin.Context) {
		// 优先从 Auth 中间件获取（JWT 解析后设置）
		tenantID := c.GetString("tenant_id")

		// 其次从 Header 获取
		if tenantID == "" {
			if h := c.GetHeader(cfg.HeaderName); h != "" {
				if _, err := uuid.Parse(h); err != nil {
					abortWithError(c, errors.ErrInvalidParam.WithDetail(cfg.HeaderName+" must be a UUID"))
					return
				}
				tenantID = h
			}
		}

		// 最后回退到默认租户编码
		if tenantID == "" && cfg.DefaultCode != "" && cfg.Resolver != nil {
			id, err := resolveCode(c.Request.Context(), cfg.Resolver, codes, cfg.DefaultCode)
			if err != nil {
				logger.Error(c.Request.Context(), "failed to resolve default tenant", err, "code", cfg.DefaultCode)
				abortWithError(c, errors.ErrInternalError)
				return
			}
			tenantID = id
		}

		// 设置到 Gin Context 与 Logger Context
		if tenantID != "" {
			c.Set("tenant_id", tenantID)
			ctx := logger.WithContext(c.Request.Context(), logger.TenantIDKey, tenantID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

func resolveCode(ctx context.Context, r TenantResolver, cache *expirable.LRU[string, string], code string) (string, error) {
	if id, ok := cache.Get(code); ok {
		return id, nil
	}
	tenant, err := r.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if tenant == nil {
		// 未找到不缓存
		return "", nil
	}
	cache.Add(code, tenant.ID)
	return tenant.ID, nil
}

// RequireTenant 要求请求已解析出租户
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("tenant_id") == "" {
			abortWithError(c, errors.ErrTenantRequired)
			return
		}
		c.Next()
	}
}

// GetTenantIDFromGin 从 Gin Context 中获取租户 ID
func GetTenantIDFromGin(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}
