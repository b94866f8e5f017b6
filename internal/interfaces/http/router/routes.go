package router

import (
	"github.com/gin-gonic/gin"

	"mam-search-api/internal/interfaces/http/dto"
	"mam-search-api/internal/interfaces/http/middleware"
	"mam-search-api/pkg/errors"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h RouterHandlers, deps RouterDeps, faceIndexEnabled bool) {
	search := v1.Group("/search", middleware.RequirePermission(middleware.PermSearchRead))
	{
		search.GET("", h.AssetSearch.Search)
		search.GET("/advanced", h.AssetSearch.Advanced)
		search.GET("/suggestions", h.AssetSearch.Suggestions)

		search.POST("/multimodal", h.Search.Multimodal)
		search.GET("/multimodal/suggestions", h.Search.Suggestions)
	}

	jobs := v1.Group("/jobs")
	{
		read := []gin.HandlerFunc{
			middleware.RequirePermission(middleware.PermJobsRead),
			middleware.DBTransaction(deps.Tx, deps.TenantCtx),
		}
		jobs.GET("", append(read, h.Job.ListJobs)...)
		jobs.GET("/:jid", append(read, h.Job.GetJob)...)

		write := middleware.RequirePermission(middleware.PermJobsWrite)
		jobs.POST("/face-index", write, requireFeature(faceIndexEnabled, "face indexing requires the milvus backend"), h.Job.CreateFaceIndexJob)
		jobs.POST("/:jid/retry", write, h.Job.RetryJob)
		jobs.POST("/:jid/cancel", write, h.Job.CancelJob)
	}
}

// requireFeature 功能未启用时返回 503
func requireFeature(enabled bool, detail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			dto.AppError(c, errors.ErrServiceUnavailable.WithDetail(detail))
			c.Abort()
			return
		}
		c.Next()
	}
}
