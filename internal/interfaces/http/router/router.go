// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/interfaces/http/handler"
	"mam-search-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器
type RouterHandlers struct {
	Health      *handler.HealthHandler
	Search      *handler.SearchHandler
	AssetSearch *handler.AssetSearchHandler
	Job         *handler.JobHandler
}

// RouterDeps 中间件依赖，RateLimiter 为 nil 时不限流
type RouterDeps struct {
	RateLimiter middleware.RateLimiter
	Tenants     middleware.TenantResolver
	Tx          repository.Transactor
	TenantCtx   repository.TenantContextManager
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers RouterHandlers
	deps     RouterDeps
}

// NewWithDeps 创建路由器
func NewWithDeps(cfg *config.Config, handlers RouterHandlers, deps RouterDeps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件，顺序即执行顺序
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, middleware.DefaultSkipPaths))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.cfg.Observability.Metrics.Path))
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))
	r.engine.Use(middleware.BodyLimit(r.cfg.Server.HTTP.MaxBodyBytes))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	health := r.handlers.Health
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/live", health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	v1.Use(
		middleware.Auth(middleware.AuthConfig{
			Secret:    r.cfg.Security.JWT.Secret,
			Issuer:    r.cfg.Security.JWT.Issuer,
			SkipPaths: middleware.DefaultSkipPaths,
			Enabled:   r.cfg.Security.JWT.Enabled,
		}),
		middleware.Tenant(middleware.TenantConfig{
			HeaderName:  r.cfg.Tenancy.Header,
			DefaultCode: r.cfg.Tenancy.DefaultCode,
			Resolver:    r.deps.Tenants,
		}),
		middleware.RequireTenant(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:  r.cfg.Security.RateLimit.Enabled,
			Requests: r.cfg.Security.RateLimit.Requests,
			Window:   r.cfg.Security.RateLimit.Window,
		}, r.deps.RateLimiter),
	)

	RegisterV1Routes(v1, r.handlers, r.deps, r.cfg.Vector.Milvus.Enabled)
}
