package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"mam-search-api/internal/application/faceindex"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/domain/repository"
	"mam-search-api/internal/interfaces/http/dto"
	"mam-search-api/internal/interfaces/http/middleware"
)

// JobManager 人脸索引任务管理
type JobManager interface {
	Create(ctx context.Context, tenantID string, req faceindex.CreateRequest) (*entity.MediaJob, error)
	Get(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error)
	List(ctx context.Context, tenantID string, filter repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.MediaJob], error)
	Retry(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error)
	Cancel(ctx context.Context, tenantID, jobID string) (*entity.MediaJob, error)
}

// JobHandler 任务处理器
type JobHandler struct {
	jobs JobManager
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs JobManager) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateFaceIndexJob 创建人脸索引任务
// @Summary 创建人脸索引任务
// @Description 将人脸向量同步到向量库，asset_id 为空时重建整个租户
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body dto.CreateFaceIndexJobRequest false "任务参数"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/jobs/face-index [post]
func (h *JobHandler) CreateFaceIndexJob(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	var req dto.CreateFaceIndexJobRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.ValidationError(c, "body", err.Error())
			return
		}
	}

	job, err := h.jobs.Create(c.Request.Context(), tenant, faceindex.CreateRequest{
		AssetID:   req.AssetID,
		CreatedBy: middleware.GetUserIDFromGin(c),
	})
	if err != nil {
		writeError(c, err, "failed to create job")
		return
	}
	dto.Accepted(c, dto.ToJobResponse(job))
}

// GetJob 获取任务详情
// @Summary 获取任务详情
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), tenant, dto.BindJobID(c))
	if err != nil {
		writeError(c, err, "failed to get job")
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}

// ListJobs 获取租户任务列表
// @Summary 任务列表
// @Tags Jobs
// @Produce json
// @Param status query string false "状态过滤"
// @Param job_type query string false "类型过滤"
// @Param asset_id query string false "资产过滤"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.JobListResponse]
// @Router /v1/jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	pageReq := dto.BindPage(c)
	filter := repository.JobFilter{
		JobType: entity.JobType(c.Query("job_type")),
		Status:  entity.JobStatus(c.Query("status")),
		AssetID: c.Query("asset_id"),
	}

	result, err := h.jobs.List(c.Request.Context(), tenant, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}

	meta := dto.NewPageMeta(result.Page, result.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToJobListResponse(result.Items), meta)
}

// RetryJob 重试任务
// @Summary 重试失败或已取消的任务
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 409 {object} dto.ErrorResponse "任务状态不允许重试"
// @Router /v1/jobs/{jid}/retry [post]
func (h *JobHandler) RetryJob(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	job, err := h.jobs.Retry(c.Request.Context(), tenant, dto.BindJobID(c))
	if err != nil {
		writeError(c, err, "failed to retry job")
		return
	}
	dto.Accepted(c, dto.ToJobResponse(job))
}

// CancelJob 取消任务
// @Summary 取消任务
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 409 {object} dto.ErrorResponse "任务已结束"
// @Router /v1/jobs/{jid}/cancel [post]
func (h *JobHandler) CancelJob(c *gin.Context) {
	tenant, ok := tenantID(c)
	if !ok {
		return
	}

	job, err := h.jobs.Cancel(c.Request.Context(), tenant, dto.BindJobID(c))
	if err != nil {
		writeError(c, err, "failed to cancel job")
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}
